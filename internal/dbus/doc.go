// Package dbus exposes tapclickd on the session bus. It owns the
// io.github.jmylchreest.Tapclick name, maps name ownership, explicit ducking
// and logind sleep onto audio focus changes, and serves the control
// interface used by the tapclick CLI.
package dbus
