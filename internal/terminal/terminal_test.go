package terminal

import (
	"testing"
)

func TestDetect_NoColorFlag(t *testing.T) {
	info := Detect(true, false)
	if info.ColorEnabled {
		t.Error("expected ColorEnabled=false when noColor=true")
	}
}

func TestDetect_NoInput(t *testing.T) {
	info := Detect(false, true)
	if info.PromptEnabled {
		t.Error("expected PromptEnabled=false when noInput=true")
	}
}

func TestDetect_PromptRequiresTTY(t *testing.T) {
	info := Detect(false, false)
	if info.PromptEnabled && !info.StdinIsTerminal {
		t.Error("PromptEnabled should be false when stdin is not a TTY")
	}
}

func TestDetect_NOCOLOREnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	info := Detect(false, false)
	if info.ColorEnabled {
		t.Error("expected ColorEnabled=false when NO_COLOR env is set")
	}
}

func TestIsDumb(t *testing.T) {
	t.Setenv("TERM", "dumb")
	if !IsDumb() {
		t.Error("expected IsDumb()=true when TERM=dumb")
	}

	t.Setenv("TERM", "xterm-256color")
	if IsDumb() {
		t.Error("expected IsDumb()=false when TERM=xterm-256color")
	}
}

func TestIsCI(t *testing.T) {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "TRAVIS", "TF_BUILD"} {
		t.Setenv(v, "")
	}
	if IsCI() {
		t.Error("expected IsCI()=false when no CI env vars are set")
	}

	t.Setenv("CI", "true")
	if !IsCI() {
		t.Error("expected IsCI()=true when CI=true")
	}
}

func TestDetect_CIDisablesPrompts(t *testing.T) {
	t.Setenv("CI", "true")
	if Detect(false, false).PromptEnabled {
		t.Error("expected PromptEnabled=false in CI")
	}
}
