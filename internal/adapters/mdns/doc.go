// Package mdns discovers network devices advertising a Web Thing
// service (_webthing._tcp by default) via multicast DNS.
//
// Browsing only runs while a pairing window is open. The first
// advertisement seen becomes a registry device whose endpoint is
// exposed as read-only address and port properties. mDNS carries no
// removal signal and no write channel, so unpairing and property
// writes are not supported.
package mdns
