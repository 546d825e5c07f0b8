package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termgate/termgate/internal/config"
)

func newDefaultPolicy(t *testing.T) *SafetyPolicy {
	t.Helper()
	return New(config.DefaultConfig().Gateway)
}

func TestEvaluateAllowsHarmlessCommands(t *testing.T) {
	p := newDefaultPolicy(t)

	for _, command := range []string{
		"echo hello",
		"ls -la",
		"ls /etc",
		"cat /etc/hostname",
		"go test ./...",
		"",
		"   ",
	} {
		verdict := p.Evaluate(command)
		assert.True(t, verdict.Allowed, "expected %q to be allowed: %s", command, verdict.Reason)
		assert.Empty(t, verdict.Reason)
	}
}

func TestEvaluateDenylist(t *testing.T) {
	p := newDefaultPolicy(t)

	for _, command := range []string{
		"rm -rf /",
		"rm -rf / --no-preserve-root",
		"sleep 1 && rm -rf /",
		"shutdown -h now",
		"reboot",
		"dd if=/dev/zero of=/dev/sda",
		"mkfs.ext4 /dev/sda1",
	} {
		verdict := p.Evaluate(command)
		assert.False(t, verdict.Allowed, "expected %q to be denied", command)
		assert.NotEmpty(t, verdict.Reason)
	}
}

func TestEvaluateIsCaseInsensitive(t *testing.T) {
	p := newDefaultPolicy(t)

	assert.False(t, p.Evaluate("RM -RF /").Allowed)
	assert.False(t, p.Evaluate("ShUtDoWn now").Allowed)
	assert.False(t, p.Evaluate("SUDO ls").Allowed)
}

func TestEvaluateSubstringContainment(t *testing.T) {
	p := newDefaultPolicy(t)

	// The match is substring containment, not token match: a longer command
	// embedding a denylisted fragment is still rejected.
	verdict := p.Evaluate("echo safe; shutdown")
	assert.False(t, verdict.Allowed)
}

func TestEvaluateProtectedPaths(t *testing.T) {
	p := newDefaultPolicy(t)

	// Destructive verb plus protected path is denied.
	assert.False(t, p.Evaluate("rm -f /etc/passwd").Allowed)
	assert.False(t, p.Evaluate("mv /usr/bin/env /tmp").Allowed)

	// The path alone is fine.
	assert.True(t, p.Evaluate("ls /etc").Allowed)
	assert.True(t, p.Evaluate("du -sh /var").Allowed)

	// A destructive verb without a protected path is fine too.
	assert.True(t, p.Evaluate("rm ./scratch.txt").Allowed)
}

func TestEvaluateSuperuserPrefix(t *testing.T) {
	p := newDefaultPolicy(t)

	// Even a harmless command is denied under a privilege prefix.
	assert.False(t, p.Evaluate("sudo ls").Allowed)
	assert.False(t, p.Evaluate("  sudo whoami").Allowed)
	assert.False(t, p.Evaluate("doas cat /tmp/x").Allowed)

	// The prefix must be at the start.
	assert.True(t, p.Evaluate("echo sudo ").Allowed)
}

func TestEvaluateIsPure(t *testing.T) {
	p := newDefaultPolicy(t)

	for _, command := range []string{"echo hello", "sudo ls", "rm -rf /", ""} {
		first := p.Evaluate(command)
		second := p.Evaluate(command)
		assert.Equal(t, first, second, "verdict for %q changed between calls", command)
	}
}

func TestEvaluateStrictMode(t *testing.T) {
	cfg := config.DefaultConfig().Gateway

	relaxed := New(cfg)
	// The baseline has no notion of shell chaining: a harmless chain passes.
	assert.True(t, relaxed.Evaluate("echo one && echo two").Allowed)
	assert.True(t, relaxed.Evaluate("echo `date`").Allowed)

	cfg.Strict = true
	strict := New(cfg)
	assert.False(t, strict.Evaluate("echo one && echo two").Allowed)
	assert.False(t, strict.Evaluate("echo one; echo two").Allowed)
	assert.False(t, strict.Evaluate("echo `date`").Allowed)
	assert.False(t, strict.Evaluate("echo $(date)").Allowed)
	assert.True(t, strict.Evaluate("echo hello").Allowed)
}

func TestEvaluateCustomRules(t *testing.T) {
	p := New(config.GatewayConfig{
		Denylist:          []string{"forbidden"},
		ProtectedPaths:    []string{"/opt/secret"},
		DestructiveVerbs:  []string{"purge"},
		SuperuserPrefixes: []string{"elevate "},
	})

	assert.False(t, p.Evaluate("run forbidden thing").Allowed)
	assert.False(t, p.Evaluate("purge /opt/secret/data").Allowed)
	assert.False(t, p.Evaluate("elevate id").Allowed)
	assert.True(t, p.Evaluate("rm -rf /").Allowed, "custom rule set replaces the default one")
}

func TestRuleCounts(t *testing.T) {
	p := newDefaultPolicy(t)
	counts := p.RuleCounts()

	cfg := config.DefaultConfig().Gateway
	assert.Equal(t, len(cfg.Denylist), counts["denylist"])
	assert.Equal(t, len(cfg.ProtectedPaths), counts["protected_paths"])
	assert.Equal(t, len(cfg.DestructiveVerbs), counts["destructive_verbs"])
	assert.Equal(t, len(cfg.SuperuserPrefixes), counts["superuser_prefixes"])
	assert.False(t, p.Strict())
}
