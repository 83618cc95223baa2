package animation

import "github.com/google/uuid"

// PlaybackState is StateHalted or StateRunning.
type PlaybackState string

const (
	StateHalted  PlaybackState = "halted"
	StateRunning PlaybackState = "running"
)

// ProgramInfo identifies a loaded program in replies and logs.
type ProgramInfo struct {
	ID   uuid.UUID `json:"id"`
	Size int       `json:"size"`
}

// PlaybackStatus is a snapshot of the coordinator.
type PlaybackStatus struct {
	State         PlaybackState `json:"state"`
	Program       *ProgramInfo  `json:"program,omitempty"`
	FramesWritten uint64        `json:"frames_written"`
	WriteErrors   uint64        `json:"write_errors"`
	LastFault     string        `json:"last_fault,omitempty"`
	Config        Config        `json:"config"`
}

type command interface {
	command()
}

type (
	updateConfigCmd struct {
		partial PartialConfig
		reply   chan<- Config
	}
	loadProgramCmd struct {
		program Program
		info    ProgramInfo
		reply   chan<- ProgramInfo
	}
	setAuxCmd struct {
		value uint8
		reply chan<- Config
	}
	stateCmd struct {
		reply chan<- PlaybackStatus
	}
)

func (updateConfigCmd) command() {}
func (loadProgramCmd) command()  {}
func (setAuxCmd) command()       {}
func (stateCmd) command()        {}
