// Package resolver classifies inbound requests by their Host header.
//
// A request is either for the node's own API, for a machine, or for a host
// the node does not serve. Machines are addressed by a hostname label that
// encodes the machine id: bech32 without a checksum under the "carol"
// human-readable part, placed directly under the configured base domain.
// Hosts that do not carry such a label may still point at a machine through
// a CNAME record, which is looked up with a single DNS query.
package resolver
