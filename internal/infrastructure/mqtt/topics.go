package mqtt

import "fmt"

// Topic prefixes for the Ember MQTT namespace.
//
// Device traffic uses the flat scheme: ember/{category}/{device_id}
const (
	// TopicPrefix is the base for all Ember topics.
	TopicPrefix = "ember"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "ember/system"
)

// Topics provides builders for Ember MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("plug-7")
//	// Returns: "ember/state/plug-7"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceAnnounce returns the topic a device announces itself on.
//
// Example: ember/announce/plug-7
func (Topics) DeviceAnnounce(deviceID string) string {
	return fmt.Sprintf("%s/announce/%s", TopicPrefix, deviceID)
}

// DeviceState returns the topic for property state updates from a device.
//
// Example: ember/state/plug-7
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceSet returns the topic for property write commands to a device.
//
// Example: ember/set/plug-7
func (Topics) DeviceSet(deviceID string) string {
	return fmt.Sprintf("%s/set/%s", TopicPrefix, deviceID)
}

// DeviceLeave returns the topic a device signals its removal on.
//
// Example: ember/leave/plug-7
func (Topics) DeviceLeave(deviceID string) string {
	return fmt.Sprintf("%s/leave/%s", TopicPrefix, deviceID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the gateway status topic.
//
// Example: ember/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemTime returns the time sync topic.
//
// Example: ember/system/time
func (Topics) SystemTime() string {
	return fmt.Sprintf("%s/time", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllAnnounces returns a pattern matching every device announcement.
//
// Pattern: ember/announce/+
func (Topics) AllAnnounces() string {
	return fmt.Sprintf("%s/announce/+", TopicPrefix)
}

// AllStates returns a pattern matching every device state update.
//
// Pattern: ember/state/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllLeaves returns a pattern matching every device leave signal.
//
// Pattern: ember/leave/+
func (Topics) AllLeaves() string {
	return fmt.Sprintf("%s/leave/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Ember topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ember/#
func (Topics) AllTopics() string {
	return "ember/#"
}
