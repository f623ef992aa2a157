package config

import (
	"time"
)

// Contract polling cadences for the near-real-time views. These are UX
// freshness targets, not protocol deadlines; they can be tuned per
// deployment via environment variables.
const (
	defaultAgentStatusInterval = 5 * time.Second
	defaultAgentQueueInterval  = 3 * time.Second
	defaultLiveCallsInterval   = 3 * time.Second
	defaultCallAlertsInterval  = 5 * time.Second
)

type PollingConfig interface {
	GetAgentStatusInterval() time.Duration
	GetAgentQueueInterval() time.Duration
	GetLiveCallsInterval() time.Duration
	GetCallAlertsInterval() time.Duration
}

type Polling struct{}

var _ PollingConfig = Polling{}

func (Polling) GetAgentStatusInterval() time.Duration {
	return getDurationEnv("AGENT_STATUS_INTERVAL", defaultAgentStatusInterval)
}

func (Polling) GetAgentQueueInterval() time.Duration {
	return getDurationEnv("AGENT_QUEUE_INTERVAL", defaultAgentQueueInterval)
}

func (Polling) GetLiveCallsInterval() time.Duration {
	return getDurationEnv("LIVE_CALLS_INTERVAL", defaultLiveCallsInterval)
}

func (Polling) GetCallAlertsInterval() time.Duration {
	return getDurationEnv("CALL_ALERTS_INTERVAL", defaultCallAlertsInterval)
}
