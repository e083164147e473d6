package tts

import (
	"bytes"
	"encoding/binary"
	"time"
)

// SilentWAV returns a mono 16-bit PCM WAV file of silence.
func SilentWAV(d time.Duration, sampleRate int) []byte {
	samples := int(d.Seconds() * float64(sampleRate))
	dataSize := uint32(samples * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))            // channels
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
