package pionice

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	envKeepAliveIntervalSec   = "ICEAGENT_ICE_KEEP_ALIVE_INTERVAL_SEC"
	envDisconnectedTimeoutSec = "ICEAGENT_ICE_DISCONNECTED_TIMEOUT_SEC"
	envFailedTimeoutSec       = "ICEAGENT_ICE_FAILED_TIMEOUT_SEC"

	keepAliveDefault           = 4 * time.Second
	disconnectedTimeoutDefault = 6 * time.Second
	failedTimeoutDefault       = 6 * time.Second

	msgWarnInvalidValue = "invalid value %s set for %s, using default %v"
)

// durationFromEnv reads a whole number of seconds from name. A missing, malformed or negative value
// yields def.
func durationFromEnv(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}

	sec, err := strconv.Atoi(raw)
	if err != nil || sec < 0 {
		log.Warnf(msgWarnInvalidValue, raw, name, def)
		return def
	}

	log.Infof("setting %s to %d seconds", name, sec)
	return time.Duration(sec) * time.Second
}

func keepAliveInterval() time.Duration {
	return durationFromEnv(envKeepAliveIntervalSec, keepAliveDefault)
}

func disconnectedTimeout() time.Duration {
	return durationFromEnv(envDisconnectedTimeoutSec, disconnectedTimeoutDefault)
}

func failedTimeout() time.Duration {
	return durationFromEnv(envFailedTimeoutSec, failedTimeoutDefault)
}
