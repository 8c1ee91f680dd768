// Package protocol defines the key-exchange wire format.
//
// Every message is a JSON envelope with a "type" discriminator:
//
//	{"type":"public_key","publicKey":8}
//	{"type":"encrypted_message","data":"Wls="}
//
// Message-oriented transports carry one envelope per message. Stream transports
// wrap each envelope in a length-prefixed frame (see WriteFrame).
package protocol
