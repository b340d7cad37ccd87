// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wltunnel

import "encoding/binary"

// WithReadTCP configures the reader side for a TCP leg: BinaryStream
// framing with a network-byte-order (BigEndian) length prefix.
func WithReadTCP() Option {
	return func(o *Options) {
		o.ReadProto = BinaryStream
		o.ReadByteOrder = binary.BigEndian
	}
}

// WithWriteTCP configures the writer side for a TCP leg: BinaryStream
// framing with a network-byte-order (BigEndian) length prefix.
func WithWriteTCP() Option {
	return func(o *Options) {
		o.WriteProto = BinaryStream
		o.WriteByteOrder = binary.BigEndian
	}
}
