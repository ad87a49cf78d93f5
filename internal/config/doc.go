// Package config loads, normalizes, and validates sniffer configuration data.
//
// It supplies repository defaults, expands user paths (tilde shortcuts plus
// $VAR and %VAR% environment references), reads TOML files, and honours the
// SNIFFER_PACKET_TIMEOUT environment override. The Config type centralizes
// every knob the capture loop and CLI need so the output root, capture target
// and catalog endpoint are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
