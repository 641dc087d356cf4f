package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLevels(t *testing.T) {
	Setup("debug", "text")
	if L().GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", L().GetLevel())
	}
	Setup("nonsense", "text")
	if L().GetLevel() != logrus.WarnLevel {
		t.Fatalf("bad level must fall back to warn, got %v", L().GetLevel())
	}
}

func TestSetupFormatters(t *testing.T) {
	Setup("info", "json")
	if _, ok := L().Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter = %T", L().Formatter)
	}
	Setup("info", "text")
	if _, ok := L().Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("formatter = %T", L().Formatter)
	}
}
