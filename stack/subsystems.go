package stack

import "go.uber.org/zap"

// radio is the in-process stand-in for the link-layer driver boundary.
type radio struct {
	enabled bool
	log     *zap.SugaredLogger
}

func (r *radio) SetEnabled(enabled bool) {
	if r.enabled != enabled {
		r.enabled = enabled
		r.log.Debugw("radio state changed", zap.Bool("enabled", enabled))
	}
}

// meshForwarder is the forwarding-engine boundary.
type meshForwarder struct {
	running bool
	log     *zap.SugaredLogger
}

func (f *meshForwarder) Start() error {
	f.running = true
	f.log.Debugw("forwarder started")
	return nil
}

func (f *meshForwarder) Stop() error {
	f.running = false
	f.log.Debugw("forwarder stopped")
	return nil
}

// channelMonitor is the link-quality monitoring boundary.
type channelMonitor struct {
	running bool
	log     *zap.SugaredLogger
}

func (m *channelMonitor) Start() error {
	m.running = true
	m.log.Debugw("channel monitor started")
	return nil
}

func (m *channelMonitor) Stop() error {
	m.running = false
	m.log.Debugw("channel monitor stopped")
	return nil
}
