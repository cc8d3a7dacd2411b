// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package vnp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/vos"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := Have([]vos.OID{"abc"})
	require.NoError(t, WriteFrame(&buf, msg))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], MaxFrameSize+1)
	buf.Write(lenBuf[:])

	_, err := ReadFrame(&buf)
	require.Error(t, err)
	require.True(t, orbiterr.HasKind(err, orbiterr.Protocol))
}

func TestSendRecvObjectDataRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	data := bytes.Repeat([]byte("x"), 20000) // forces multiple 8KiB frames
	require.NoError(t, SendObjectData(&buf, data))

	got, err := RecvObjectData(&buf, int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

// TestFramingViolation: a header announces size N but only N-1 bytes
// arrive before a non-ObjectData frame; the receiver fails with Protocol.
func TestFramingViolation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, ObjectData([]byte("short"))))
	require.NoError(t, WriteFrame(&buf, Ok()))

	_, err := RecvObjectData(&buf, 6) // one more byte than was sent
	require.Error(t, err)
	require.True(t, orbiterr.HasKind(err, orbiterr.Protocol))
}

func TestRecvObjectDataPropagatesServerError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Error("object not found")))

	_, err := RecvObjectData(&buf, 10)
	require.Error(t, err)
}

// TestEmptyObjectDataRoundTrip pins the zero-length convention: no frames
// are sent and none are consumed, so the stream stays aligned for the next
// message.
func TestEmptyObjectDataRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SendObjectData(&buf, nil))
	require.Zero(t, buf.Len())

	got, err := RecvObjectData(&buf, 0)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, WriteFrame(&buf, Ok()))
	next, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, TypeOk, next.Type)
}
