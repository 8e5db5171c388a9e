package models

import (
	"fmt"
	"strings"
)

// SystemLevel selects which instances StartSystem/StopSystem act on.
type SystemLevel string

const (
	LevelAll      SystemLevel = "ALL"
	LevelSCS      SystemLevel = "SCS"
	LevelDialog   SystemLevel = "DIALOG"
	LevelABAP     SystemLevel = "ABAP"
	LevelJ2EE     SystemLevel = "J2EE"
	LevelTREX     SystemLevel = "TREX"
	LevelENQREP   SystemLevel = "ENQREP"
	LevelHDB      SystemLevel = "HDB"
	LevelAllNoHDB SystemLevel = "ALLNOHDB"
)

var systemLevels = []SystemLevel{
	LevelAll, LevelSCS, LevelDialog, LevelABAP, LevelJ2EE, LevelTREX, LevelENQREP, LevelHDB, LevelAllNoHDB,
}

// ParseSystemLevel is case-insensitive; an empty string means ALL.
func ParseSystemLevel(s string) (SystemLevel, error) {
	if s == "" {
		return LevelAll, nil
	}
	for _, l := range systemLevels {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid system level %q", s)
}

// Options renders the level the way StartSystem/StopSystem expect it.
func (l SystemLevel) Options() string {
	return fmt.Sprintf("SAPControl-%s-INSTANCES", l)
}
