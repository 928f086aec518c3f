// Package textutil holds small text helpers shared by the daemon and CLI.
package textutil
