// Package zwave provides the serial framing of the Z-Wave host link.
package zwave

// The link carries single-byte control frames (ACK, NAK, CAN) and
// length-prefixed data frames protected by an XOR checksum:
//
//	SOF(0x01) | LEN | TYPE | CMD | PAYLOAD[LEN-3] | CHECKSUM
//
// Every data frame must be answered immediately with ACK, or NAK when the
// checksum doesn't match. A data frame received while the peer still owes
// an ACK for a frame sent to it is answered with CAN and dropped.
//
// When the module runs its bootloader, it prints a menu led by 0x0D and
// the link stops using the framing above until the bootloader is left.
