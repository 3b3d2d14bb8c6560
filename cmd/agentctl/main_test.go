package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"run", "debate"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestBuildProviderUnknownNameFails(t *testing.T) {
	if _, err := buildProvider("unknown", ""); err == nil {
		t.Fatal("expected an error for an unknown provider name")
	}
}
