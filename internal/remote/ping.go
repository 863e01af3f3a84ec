package remote

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	pingCount      = 3
	pingTimeoutSec = 2
)

// Pinger reports basic network reachability of a target. Used to
// refine the failure reason when remote command execution fails: a
// node that still answers ping has an ssh or tool problem, not an
// outage.
type Pinger interface {
	Ping(ctx context.Context, address string) bool
}

// ICMPPinger shells out to the system ping binary.
type ICMPPinger struct{}

// Ping sends a few echo requests and reports whether any succeeded.
func (ICMPPinger) Ping(ctx context.Context, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(pingCount*pingTimeoutSec+5)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping",
		"-c", strconv.Itoa(pingCount),
		"-W", strconv.Itoa(pingTimeoutSec),
		address,
	)
	if err := cmd.Run(); err != nil {
		log.Warn().Str("target", address).Err(err).Msg("Ping check failed")
		return false
	}
	log.Debug().Str("target", address).Msg("Ping check succeeded")
	return true
}
