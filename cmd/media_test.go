package main

import (
	"testing"

	"github.com/offbeatlabs/stepsync/internal/models"
)

func TestAuditKinds(t *testing.T) {
	t.Run("all covers every owner kind", func(t *testing.T) {
		kinds, err := auditKinds("all")
		if err != nil {
			t.Fatalf("auditKinds(all) error = %v", err)
		}
		want := []models.OwnerKind{models.OwnerLesson, models.OwnerCourse, models.OwnerLevel, models.OwnerPost}
		if len(kinds) != len(want) {
			t.Fatalf("auditKinds(all) = %v, want %v", kinds, want)
		}
		for i, k := range want {
			if kinds[i] != k {
				t.Errorf("auditKinds(all)[%d] = %v, want %v", i, kinds[i], k)
			}
		}
	})

	t.Run("empty flag defaults to all", func(t *testing.T) {
		kinds, err := auditKinds("")
		if err != nil {
			t.Fatalf("auditKinds() error = %v", err)
		}
		if len(kinds) != 4 {
			t.Errorf("auditKinds() = %v, want all four kinds", kinds)
		}
	})

	t.Run("single kind", func(t *testing.T) {
		kinds, err := auditKinds("level")
		if err != nil {
			t.Fatalf("auditKinds(level) error = %v", err)
		}
		if len(kinds) != 1 || kinds[0] != models.OwnerLevel {
			t.Errorf("auditKinds(level) = %v, want [level]", kinds)
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		if _, err := auditKinds("recital"); err == nil {
			t.Error("auditKinds(recital) = nil error, want error")
		}
	})
}

func TestMediaCommandTree(t *testing.T) {
	cmd := mediaCommand(NewRunner(RunnerOpts{}))

	for _, name := range []string{"status", "check", "upload", "delete", "audit"} {
		found := false
		for _, sub := range cmd.Commands {
			if sub.Name == name {
				found = true
				if sub.Action == nil {
					t.Errorf("media %s has no action", name)
				}
			}
		}
		if !found {
			t.Errorf("media %s subcommand missing", name)
		}
	}
}
