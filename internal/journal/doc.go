// Package journal implements a daily-rolling, fixed-size binary journal
// for recorded market data.
//
// Each UTC date gets one preallocated file at <base>/<YYYYMMDD>/journal.dat.
// The first four bytes hold the bitwise NOT of the payload length as a
// little-endian int32; the payload follows. Primitives are little-endian,
// strings carry a stop-bit varint length prefix.
//
// The NOT header makes a never-synced file (all zeroes) decode to an
// invalid negative length, which readers treat as empty.
package journal
