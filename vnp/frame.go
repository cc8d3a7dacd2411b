// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package vnp

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/passadis/orbit/orbiterr"
)

// MaxFrameSize bounds the length prefix accepted by ReadFrame, limiting
// what a malicious or buggy peer can make us allocate.
const MaxFrameSize = 64 * 1024 * 1024

// objectDataChunkSize is how much payload each ObjectData frame carries
// when streaming a bulk object.
const objectDataChunkSize = 8192

// WriteFrame writes one length-prefixed JSON message to w.
func WriteFrame(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return orbiterr.New("vnp.WriteFrame", orbiterr.Protocol, err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return orbiterr.New("vnp.WriteFrame", orbiterr.Transport, err)
	}
	if _, err := w.Write(body); err != nil {
		return orbiterr.New("vnp.WriteFrame", orbiterr.Transport, err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON message from r.
func ReadFrame(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Message{}, orbiterr.New("vnp.ReadFrame", orbiterr.Transport, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return Message{}, orbiterr.Newf("vnp.ReadFrame", orbiterr.Protocol, "frame length %d exceeds max %d", n, MaxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, orbiterr.New("vnp.ReadFrame", orbiterr.Transport, err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, orbiterr.New("vnp.ReadFrame", orbiterr.Protocol, err)
	}
	return msg, nil
}

// SendObjectData streams data as a sequence of ObjectData frames. A
// zero-length payload sends no frames at all: the receiver accumulates
// frames only until the announced size is reached, so an empty object is
// fully described by its header.
func SendObjectData(w io.Writer, data []byte) error {
	for off := 0; off < len(data); off += objectDataChunkSize {
		end := off + objectDataChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := WriteFrame(w, ObjectData(data[off:end])); err != nil {
			return err
		}
	}
	return nil
}

// RecvObjectData accumulates ObjectData frames until expectedSize bytes
// have been received. ObjectData is the only message that may interleave
// multiple frames for one logical datum; everything else is single-frame.
func RecvObjectData(r io.Reader, expectedSize int64) ([]byte, error) {
	if expectedSize < 0 {
		return nil, orbiterr.Newf("vnp.RecvObjectData", orbiterr.Protocol, "negative object size %d", expectedSize)
	}
	capHint := expectedSize
	if capHint > MaxFrameSize {
		capHint = MaxFrameSize
	}
	out := make([]byte, 0, capHint)
	for int64(len(out)) < expectedSize {
		msg, err := ReadFrame(r)
		if err != nil {
			return nil, err
		}
		if msg.Type == TypeError {
			return nil, orbiterr.Newf("vnp.RecvObjectData", orbiterr.Protocol, "server error: %s", msg.ErrMessage)
		}
		if msg.Type != TypeObjectData {
			return nil, orbiterr.Newf("vnp.RecvObjectData", orbiterr.Protocol, "expected ObjectData, got %s", msg.Type)
		}
		out = append(out, msg.Data...)
	}
	if int64(len(out)) != expectedSize {
		return nil, orbiterr.Newf("vnp.RecvObjectData", orbiterr.Protocol, "expected %d bytes, received %d", expectedSize, len(out))
	}
	return out, nil
}
