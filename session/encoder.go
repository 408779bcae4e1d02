package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

// Encode serializes a session into the versioned binary blob stored in
// Redis. The session ID is carried by the Redis key, not the blob.
//
// Layout (v1): version byte, then four length-prefixed strings (userID,
// surface, createdByIP, userAgent), then createdAt, lastUsedAt, revokedAt
// as big-endian int64, then the length-prefixed revoked reason. The fixed
// position of the timestamp block after the string block is what lets the
// touch and revoke scripts splice timestamps server-side.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", s.UserID},
		{"surface", s.Surface},
		{"createdByIP", s.CreatedByIP},
		{"userAgent", s.UserAgent},
	} {
		if len(field.value) > 255 {
			return nil, errors.New(field.name + " too long")
		}
		buf.WriteByte(byte(len(field.value)))
		buf.WriteString(field.value)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastUsedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.RevokedAt); err != nil {
		return nil, err
	}

	if len(s.RevokedReason) > 255 {
		return nil, errors.New("revokedReason too long")
	}
	buf.WriteByte(byte(len(s.RevokedReason)))
	buf.WriteString(s.RevokedReason)

	return buf.Bytes(), nil
}

// Decode parses a binary session blob. The caller fills in ID from the key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	for _, dst := range []*string{&s.UserID, &s.Surface, &s.CreatedByIP, &s.UserAgent} {
		strLen, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		raw := make([]byte, strLen)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*dst = string(raw)
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastUsedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.RevokedAt); err != nil {
		return nil, err
	}

	reasonLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	reason := make([]byte, reasonLen)
	if _, err := io.ReadFull(reader, reason); err != nil {
		return nil, err
	}
	s.RevokedReason = string(reason)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after session blob")
	}

	return s, nil
}
