// ABOUTME: Tests for the install-skill command.
// ABOUTME: Validates skill installation, confirmation handling, and file content.

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInstallSkillWritesEmbeddedContent(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, strings.NewReader(""), &out, true); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	content, err := os.ReadFile(skillPath(home))
	if err != nil {
		t.Fatalf("Skill file not created: %v", err)
	}
	embedded, _ := skillFS.ReadFile("skill/SKILL.md")
	if !bytes.Equal(content, embedded) {
		t.Error("Installed skill differs from embedded content")
	}
	if !strings.Contains(string(content), "name: fitsync") {
		t.Error("Expected skill frontmatter name")
	}
}

func TestInstallSkillCanceled(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, strings.NewReader("n\n"), &out, false); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if !strings.Contains(out.String(), "Installation canceled.") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(skillPath(home)); !os.IsNotExist(err) {
		t.Error("Expected no skill file after cancel")
	}
}

func TestInstallSkillConfirmedOverwrites(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(home, strings.NewReader(""), &out, true); err != nil {
		t.Fatalf("first install failed: %v", err)
	}
	out.Reset()
	if err := installSkill(home, strings.NewReader("yes\n"), &out, false); err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected overwrite note, got %q", out.String())
	}
}
