package workers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// expectedCommands is the fixed command surface the bot is supposed to
// expose. Registration itself happens in the chat-platform command router,
// which is out of this module's scope; the self-test loop only checks that
// whatever router is wired in via registeredCommands still reports every
// name it should.
var expectedCommands = []string{
	"settings", "status", "help", "help2", "restart",
	"raidplan", "raid_finish", "raidlist", "dungeonlist", "cancel_all_raids",
	"purge", "purgebot",
	"remote_guilds", "remote_cancel_all_raids", "remote_raidlist", "remote_rebuild_memberlists",
	"template_config", "backup_db", "meme", "id",
}

// runSelfTest checks the registered command set against expectedCommands
// every SelfTestInterval.
func (m *Manager) runSelfTest(parentCtx context.Context) {
	ticker := time.NewTicker(m.cfg.SelfTestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cycle(parentCtx, "self_test", m.selfTestOnce)
		case <-parentCtx.Done():
			return
		}
	}
}

// selfTestOnce checks the registered command set against expectedCommands
// and records the outcome on the Manager via last_self_test_ok_at or
// last_self_test_error, so an operator (or the status command) can see when
// the bot last proved its own command surface intact, not just whether this
// particular cycle returned an error.
func (m *Manager) selfTestOnce(ctx context.Context) (int, error) {
	if m.registeredCommands == nil {
		m.setSelfTestOK()
		return 0, nil
	}

	registered := make(map[string]bool, len(expectedCommands))
	for _, name := range m.registeredCommands() {
		registered[name] = true
	}

	var missing []string
	for _, want := range expectedCommands {
		if !registered[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		m.setSelfTestOK()
		return 0, nil
	}
	err := fmt.Errorf("self-test: command(s) not registered: %s", strings.Join(missing, ", "))
	m.setSelfTestError(err)
	return len(missing), err
}
