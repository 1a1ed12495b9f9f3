/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import "fmt"

// Action is the pending re-work level for a zone, computed by ZoneConfig.Compare
// and consumed by Zone.PerformAction. The ordering is significant: higher actions
// subsume every stage that a lower action would have run.
type Action uint8

const (
	NoChange Action = iota
	NoSchedule
	Reschedule
	Resort
	Reread
	Renesc
	Resign
)

var ActionToString = map[Action]string{
	NoChange:   "no-change",
	NoSchedule: "no-schedule",
	Reschedule: "reschedule",
	Resort:     "resort",
	Reread:     "reread",
	Renesc:     "rensec",
	Resign:     "resign",
}

func (a Action) String() string {
	if s, ok := ActionToString[a]; ok {
		return s
	}
	return fmt.Sprintf("Action(%d)", a)
}

// SerialPolicy is the SOA serial number update strategy named in a zone's policy.
type SerialPolicy string

const (
	SerialKeep        SerialPolicy = "keep"
	SerialCounter     SerialPolicy = "counter"
	SerialUnixtime    SerialPolicy = "unixtime"
	SerialDatecounter SerialPolicy = "datecounter"
)

var ValidSerialPolicies = map[SerialPolicy]bool{
	SerialKeep:        true,
	SerialCounter:     true,
	SerialUnixtime:    true,
	SerialDatecounter: true,
}

// TaskKind identifies what a Task does when it runs. SignZone is the only
// production kind today; Dummy exists purely for test scheduling.
type TaskKind uint8

const (
	SignZone TaskKind = iota + 1
	Dummy
)

var TaskKindToString = map[TaskKind]string{
	SignZone: "sign-zone",
	Dummy:    "dummy",
}

func (k TaskKind) String() string {
	if s, ok := TaskKindToString[k]; ok {
		return s
	}
	return fmt.Sprintf("TaskKind(%d)", k)
}
