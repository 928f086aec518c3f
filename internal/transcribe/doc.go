// Package transcribe talks to an OpenAI-compatible speech-to-text endpoint.
//
// Client.Transcribe uploads one segment as multipart form data to
// {base_url}/audio/transcriptions and returns the recognized text. Requests
// that fail with 408, 429, 5xx or network timeouts are retried with capped
// exponential backoff, honouring Retry-After when the server sends one.
package transcribe
