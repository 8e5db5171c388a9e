package models

import "time"

// SyslogTimeLayout is the layout of the Time field returned by ABAPReadSyslog.
const SyslogTimeLayout = "2006 01 02 15:04:05"

// SyslogEntry is one line of the ABAP system log (SM21).
type SyslogEntry struct {
	Time     time.Time `json:"time"`
	Type     string    `json:"type"`
	Client   string    `json:"client"`
	User     string    `json:"user"`
	Tcode    string    `json:"tcode"`
	Program  string    `json:"program"`
	Text     string    `json:"text"`
	Severity string    `json:"severity"`
}
