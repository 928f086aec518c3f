package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"transcriber/internal/api"
	"transcriber/internal/project"
	"transcriber/internal/segment"
)

func TestDetectTranscribeExportProjectFile(t *testing.T) {
	env := setupCLITestEnv(t)
	audioPath := env.writeSpeech(t, "talk.wav")
	projectPath := filepath.Join(env.baseDir, "audio", "talk"+project.FileExtension)

	out := env.mustRun(t, "detect", audioPath)
	requireContains(t, out, "speech segments")
	requireContains(t, out, "Saved project to "+projectPath)

	detected, err := project.Load(projectPath)
	if err != nil {
		t.Fatalf("load detected project: %v", err)
	}
	if len(detected.Segments) == 0 {
		t.Fatal("expected detected segments")
	}
	if detected.Name != "talk" || detected.SourceFilename != "talk.wav" || len(detected.SourceAudio) == 0 {
		t.Fatalf("unexpected project metadata: %q %q %d", detected.Name, detected.SourceFilename, len(detected.SourceAudio))
	}

	out = env.mustRun(t, "transcribe", projectPath)
	total := len(detected.Segments)
	requireContains(t, out, "Transcribed "+strconv.Itoa(total)+" of "+strconv.Itoa(total)+" segments")
	if got := int(env.requests.Load()); got != total {
		t.Fatalf("transcription requests = %d, want %d", got, total)
	}

	transcribed, err := project.Load(projectPath)
	if err != nil {
		t.Fatalf("load transcribed project: %v", err)
	}
	for i, seg := range transcribed.Segments {
		if seg.State() != segment.StateDone || seg.Text() != "hello from the service" {
			t.Fatalf("segment %d = %s %q", i, seg.State(), seg.Text())
		}
	}

	// Finished segments are skipped on a second run.
	env.mustRun(t, "transcribe", projectPath)
	if got := int(env.requests.Load()); got != total {
		t.Fatalf("second run sent %d requests, want %d", got-total, 0)
	}

	out = env.mustRun(t, "retry", projectPath, "0")
	requireContains(t, out, "hello from the service")
	if got := int(env.requests.Load()); got != total+1 {
		t.Fatalf("retry requests = %d, want %d", got, total+1)
	}

	out = env.mustRun(t, "export", projectPath, "--format", "srt")
	requireContains(t, out, "1\n00:00:")
	requireContains(t, out, "-->")
	requireContains(t, out, "hello from the service")

	target := filepath.Join(env.baseDir, "talk.vtt")
	env.mustRun(t, "export", projectPath, "-f", "vtt", "-o", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT") {
		t.Fatalf("unexpected vtt export %q", data)
	}

	out = env.mustRun(t, "project", "show", projectPath)
	requireContains(t, out, "Project: talk")
	requireContains(t, out, "done")
}

func TestTranscribeProjectFileRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Transcription.APIKey = ""
	t.Setenv("TRANSCRIBER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	writeTestConfig(t, env.configPath, env.cfg)

	path := filepath.Join(env.baseDir, "empty"+project.FileExtension)
	if err := project.Save(path, &segment.Project{Name: "empty"}); err != nil {
		t.Fatalf("save project: %v", err)
	}
	_, _, err := env.run(t, "transcribe", path)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestImportNoscribeTranscript(t *testing.T) {
	env := setupCLITestEnv(t)
	audioPath := env.writeSpeech(t, "interview.wav")
	doc := `<html><head><meta name="audio_source" content="interview.wav"></head><body>
<p>S01: [00:00:01] Hello there.</p>
<p>S02: [00:00:05] Thanks for having me.</p>
</body></html>`
	htmlPath := filepath.Join(filepath.Dir(audioPath), "interview.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	out := env.mustRun(t, "import", htmlPath, "--name", "Interview")
	requireContains(t, out, "Source audio: "+audioPath)
	requireContains(t, out, "Imported 2 segments (timestamps, 0 dropped)")

	p, err := project.Load(defaultProjectPath(htmlPath))
	if err != nil {
		t.Fatalf("load imported project: %v", err)
	}
	if p.Name != "Interview" || len(p.SourceAudio) == 0 || len(p.Segments) != 2 {
		t.Fatalf("unexpected imported project %+v", p.Segments)
	}
	if p.Segments[0].Text() != "S01: Hello there." {
		t.Fatalf("unexpected first segment %q", p.Segments[0].Text())
	}

	out = env.mustRun(t, "export", defaultProjectPath(htmlPath))
	requireContains(t, out, "Thanks for having me.")
}

func TestImportMergesRepeatedTimestamps(t *testing.T) {
	env := setupCLITestEnv(t)
	audioPath := env.writeSpeech(t, "panel.wav")
	doc := `<html><head><meta name="audio_source" content="panel.wav"></head><body>
<p>S01: [00:00:10] Opening.</p>
<p>S02: [00:00:10] Overlapping reply.</p>
<p>S01: [00:00:20] Closing.</p>
</body></html>`
	htmlPath := filepath.Join(filepath.Dir(audioPath), "panel.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	out, stderr, err := env.run(t, "import", htmlPath)
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, stderr)
	}
	requireContains(t, out, "Imported 2 segments (timestamps, 0 dropped, 1 merged)")
	requireContains(t, stderr, "1 entries repeated an earlier timestamp")

	p, err := project.Load(defaultProjectPath(htmlPath))
	if err != nil {
		t.Fatalf("load imported project: %v", err)
	}
	if len(p.Segments) != 2 || p.Segments[0].EndSeconds != 20 {
		t.Fatalf("unexpected segments %+v", p.Segments)
	}
	if p.Segments[0].Text() != "S01: Opening.\nS02: Overlapping reply." {
		t.Fatalf("unexpected merged text %q", p.Segments[0].Text())
	}
}

func TestImportKeepsSegmentsWhenAudioMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := `<html><head><meta name="audio_source" content="gone.mp3"></head><body>
<p>S01: [00:00:01] Only text.</p>
</body></html>`
	htmlPath := filepath.Join(env.baseDir, "gone.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	out := env.mustRun(t, "import", htmlPath)
	requireContains(t, out, "not found; segments kept without audio")
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "status")
	requireContains(t, out, "Daemon")
	requireContains(t, out, "not running")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "No projects")
}

func TestStopWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "stop")
	requireContains(t, out, "Daemon is not running")
}

func TestDaemonUploadTranscribeExport(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)
	audioPath := env.writeSpeech(t, "meeting.wav")

	out := env.mustRun(t, "upload", audioPath, "--transcribe")
	requireContains(t, out, "Uploaded meeting.wav")
	requireContains(t, out, "Created project")
	requireContains(t, out, "queued for transcription")

	client := api.NewClient(env.apiAddr, "")
	projects, err := client.ListProjects(context.Background())
	if err != nil || len(projects) != 1 {
		t.Fatalf("list projects: %v %+v", err, projects)
	}
	id := strconv.FormatInt(projects[0].ID, 10)
	waitFor(t, 20*time.Second, func() bool {
		resp, err := client.GetProject(context.Background(), projects[0].ID)
		return err == nil && resp.Project.Status == "completed"
	})

	out = env.mustRun(t, "project", "list")
	requireContains(t, out, "meeting")
	requireContains(t, out, "completed")

	out = env.mustRun(t, "project", "show", id)
	requireContains(t, out, "Project "+id+": meeting")
	requireContains(t, out, "hello from the service")

	out = env.mustRun(t, "export", id, "--format", "txt")
	requireContains(t, out, "hello from the service")

	out = env.mustRun(t, "logs", "--project", id, "-n", "0")
	requireContains(t, out, `"project_id":`+id)

	out = env.mustRun(t, "logs", "-n", "5")
	if strings.Count(out, "\n") == 0 || strings.Count(out, "\n") > 5 {
		t.Fatalf("expected up to 5 daemon log lines, got %q", out)
	}

	out = env.mustRun(t, "status")
	requireContains(t, out, "running (pid")
	requireContains(t, out, "completed")

	out = env.mustRun(t, "project", "remove", id)
	requireContains(t, out, "Removed project "+id)
	if _, _, err := env.run(t, "project", "show", id); err == nil {
		t.Fatal("expected removed project lookup to fail")
	}
}

func TestDaemonCommandsReportUnreachableAPI(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "project", "list")
	if err == nil || !strings.Contains(err.Error(), "transcriber start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestLogsWithoutDaemonLog(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "logs")
	if err == nil || !strings.Contains(err.Error(), "no log file") {
		t.Fatalf("expected missing log error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "config", "validate")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Data directory")
	requireContains(t, out, "Configuration valid")

	out = env.mustRun(t, "config", "show")
	requireContains(t, out, "api_key = '********'")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing config to be refused")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}
