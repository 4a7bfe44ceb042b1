package mqtt

import "strings"

// Topics builds the topics of one bridge.
type Topics struct {
	Prefix string
	Bridge string
}

func (t Topics) base() string { return t.Prefix + "/" + t.Bridge }

// Status is the retained online/offline topic.
func (t Topics) Status() string { return t.base() + "/status" }

// Received is where codes decoded by device are published.
func (t Topics) Received(device string) string { return t.base() + "/" + device + "/received" }

// Send is the command topic of device.
func (t Topics) Send(device string) string { return t.base() + "/" + device + "/send" }

// AllSend matches the command topic of every device.
func (t Topics) AllSend() string { return t.base() + "/+/send" }

// DeviceFromSend extracts the device name from a command topic.
func (t Topics) DeviceFromSend(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.base()+"/")
	if !ok {
		return "", false
	}
	device, ok := strings.CutSuffix(rest, "/send")
	if !ok || device == "" || strings.Contains(device, "/") {
		return "", false
	}
	return device, true
}
