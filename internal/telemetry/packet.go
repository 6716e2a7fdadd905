package telemetry

import "time"

// Variant identifies which text wire format a line uses.
type Variant int

const (
	// VariantAuto picks VariantWireless when the first field is "PACKET"
	// and VariantRelay otherwise.
	VariantAuto Variant = iota
	// VariantRelay is SEQ|NANO_TIME|PAYLOAD|CHECKSUM|ESP_RX_TIME|ESP_TX_TIME,
	// emitted by the wired relay which stamps receive/transmit microseconds.
	VariantRelay
	// VariantWireless is PACKET|SEQ|SRC_TIME|DATA|LATENCY:<ms>|COUNT:<n>,
	// emitted by the ESP-NOW receiver.
	VariantWireless
)

func (v Variant) String() string {
	switch v {
	case VariantAuto:
		return "auto"
	case VariantRelay:
		return "relay"
	case VariantWireless:
		return "wireless"
	default:
		return "unknown"
	}
}

// ParseVariant maps a flag value onto a Variant.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "", "auto":
		return VariantAuto, true
	case "relay":
		return VariantRelay, true
	case "wireless":
		return VariantWireless, true
	}
	return VariantAuto, false
}

// Packet is one decoded telemetry record.
type Packet struct {
	Variant  Variant
	Sequence uint64

	// OriginTime is the sender's own timestamp, kept as sent.
	OriginTime string
	Payload    string

	Checksum    int64
	HasChecksum bool

	// Relay-stage timestamps in microseconds on the relay's clock.
	RelayReceiveMicros  int64
	RelayTransmitMicros int64

	// Latency reported directly by the wireless receiver.
	LatencyMillis int64
	HasLatency    bool

	// Receiver-side packet counter.
	Count    int64
	HasCount bool

	// LocalReceiveTime is when the decoder saw the line.
	LocalReceiveTime time.Time
}

// LatencyMs returns the relay-stage latency in milliseconds. For the relay
// variant this is (tx - rx) / 1000; it does not include the time from the
// origin to the relay or from the relay to this host.
func (p Packet) LatencyMs() float64 {
	if p.HasLatency {
		return float64(p.LatencyMillis)
	}
	return float64(p.RelayTransmitMicros-p.RelayReceiveMicros) / 1000.0
}

// LocalReceiveSeconds returns LocalReceiveTime as floating-point Unix seconds.
func (p Packet) LocalReceiveSeconds() float64 {
	return float64(p.LocalReceiveTime.UnixNano()) / 1e9
}

// RelayStatus is the relay's periodic STATUS|RX:<n>|TX:<n> heartbeat.
type RelayStatus struct {
	Received  int64
	Forwarded int64
}
