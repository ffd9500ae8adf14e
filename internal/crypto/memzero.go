package crypto

import "relaychat/internal/util/memzero"

// Wipe zeroes the provided buffers. This is best-effort.
func Wipe(bufs ...[]byte) { memzero.Zero(bufs...) }
