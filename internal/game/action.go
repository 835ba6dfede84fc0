package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind is the closed set of player actions.
type ActionKind string

const (
	KindWait           ActionKind = "wait"
	KindCapture        ActionKind = "capture"
	KindBuild          ActionKind = "build"
	KindUpgrade        ActionKind = "upgrade"
	KindUpgradeHub     ActionKind = "upgrade_hub"
	KindEMPBlast       ActionKind = "emp_blast"
	KindNetworkCapture ActionKind = "network_capture"
	KindWebCapture     ActionKind = "capture_web"
)

const buildPrefix = "build_"

// Action is one player command. Target is set only for capture, build and
// upgrade; Program only for build.
type Action struct {
	Kind    ActionKind
	Target  string
	Program ProgramType
}

func Wait() Action             { return Action{Kind: KindWait} }
func Capture(id string) Action { return Action{Kind: KindCapture, Target: id} }
func Upgrade(id string) Action { return Action{Kind: KindUpgrade, Target: id} }
func UpgradeHub() Action       { return Action{Kind: KindUpgradeHub} }
func EMPBlast() Action         { return Action{Kind: KindEMPBlast} }
func NetworkCapture() Action   { return Action{Kind: KindNetworkCapture} }
func WebCapture() Action       { return Action{Kind: KindWebCapture} }

func Build(id string, program ProgramType) Action {
	return Action{Kind: KindBuild, Target: id, Program: program}
}

// Targeted reports whether the action acts on a specific node.
func (a Action) Targeted() bool {
	switch a.Kind {
	case KindCapture, KindBuild, KindUpgrade:
		return true
	default:
		return false
	}
}

// WireName is the engine's action identifier, e.g. "build_miner".
func (a Action) WireName() string {
	if a.Kind == KindBuild {
		return buildPrefix + string(a.Program)
	}
	return string(a.Kind)
}

func (a Action) String() string {
	if a.Targeted() {
		return a.WireName() + "@" + a.Target
	}
	return a.WireName()
}

// Validate checks that the variant carries exactly the fields its kind needs.
func (a Action) Validate() error {
	switch a.Kind {
	case KindWait, KindUpgradeHub, KindEMPBlast, KindNetworkCapture, KindWebCapture:
		if a.Target != "" || a.Program != "" {
			return fmt.Errorf("action %s takes no target", a.Kind)
		}
	case KindCapture, KindUpgrade:
		if a.Target == "" {
			return fmt.Errorf("action %s requires a target", a.Kind)
		}
		if a.Program != "" {
			return fmt.Errorf("action %s takes no program", a.Kind)
		}
	case KindBuild:
		if a.Target == "" {
			return fmt.Errorf("build requires a target")
		}
		switch a.Program {
		case ProgramMiner, ProgramSentry, ProgramShield, ProgramOverclocker:
		default:
			return fmt.Errorf("unsupported build program %q", a.Program)
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

type wireAction struct {
	Action       string `json:"action"`
	TargetNodeID string `json:"targetNodeId,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(wireAction{Action: a.WireName(), TargetNodeID: a.Target})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := ParseAction(w.Action, w.TargetNodeID)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts an engine action name and optional target into the
// typed variant.
func ParseAction(name, target string) (Action, error) {
	var a Action
	if program, ok := strings.CutPrefix(name, buildPrefix); ok {
		a = Build(target, ProgramType(program))
	} else {
		a = Action{Kind: ActionKind(name), Target: target}
	}
	if err := a.Validate(); err != nil {
		return Action{}, fmt.Errorf("parse action %q: %w", name, err)
	}
	return a, nil
}
