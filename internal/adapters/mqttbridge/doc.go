// Package mqttbridge adapts devices speaking the gateway's MQTT
// convention into the device registry.
//
// Devices announce themselves with a JSON document on
// <prefix>/announce/<id>, publish property values on
// <prefix>/state/<id>, accept writes on <prefix>/set/<id> and signal
// departure on <prefix>/leave/<id>.
//
// Announcements only admit a device while a pairing window is open; an
// unattended broker full of chatty devices cannot grow the registry on
// its own. State and leave traffic is accepted at any time so devices
// paired in earlier runs keep working across gateway restarts.
package mqttbridge
