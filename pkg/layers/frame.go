/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package layers

/*
Frame as it comes from the sensor board (32 bytes, 8 records):

b0       b1       b2       b3         b0       b1       b2       b3
01110100 01110000 10011000 [0001]0000 00000000 00000000 00000000 [0010]0000 ...

The board sends every 4-byte record least significant byte first.
Reversed, a record reads as a big-endian uint32:

[cccc]vvvv vvvvvvvv vvvvvvvv vvvvvvvv
 channel   value (28 bits)
*/

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// FrameLayerNum identifies the layer
	FrameLayerNum = 2100
	// RecordSize is the size of a record in bytes
	RecordSize = 4
	// FrameSize is the frame size used by the sensor board
	FrameSize = 32
	// MaxChannel is the biggest channel id a record can carry
	MaxChannel = 0x0F
	// MaxValue is the biggest value a record can carry
	MaxValue = 0x0FFFFFFF

	channelShift = 28
)

// Sample is one decoded record
type Sample struct {
	Channel  uint8  `json:"channel"`
	Value    uint32 `json:"value"`
	Position int    `json:"position"`
}

func (s Sample) String() string {
	return fmt.Sprintf("(%d, %d)", s.Channel, s.Value)
}

// Values returns the sample values in record order
func Values(samples []Sample) []uint32 {
	values := make([]uint32, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}

// correct reverses the byte order of one record
func correct(record []byte) [RecordSize]byte {
	return [RecordSize]byte{record[3], record[2], record[1], record[0]}
}

// DecodeRecord decodes a single 4-byte record
func DecodeRecord(record []byte, position int) Sample {
	corrected := correct(record)
	u := binary.BigEndian.Uint32(corrected[:])
	return Sample{
		Channel:  uint8(u >> channelShift),
		Value:    u & MaxValue,
		Position: position,
	}
}

// Decode splits a raw frame into records and decodes every record.
// Records are independent, an all-zero record is a valid {0, 0} sample.
func Decode(raw []byte) ([]Sample, error) {
	if len(raw) == 0 || len(raw)%RecordSize != 0 {
		return nil, ErrMalformedFrame{Length: len(raw)}
	}
	samples := make([]Sample, 0, len(raw)/RecordSize)
	for i := 0; i < len(raw); i += RecordSize {
		samples = append(samples, DecodeRecord(raw[i:i+RecordSize], i/RecordSize))
	}
	return samples, nil
}

// EncodeTo writes samples to buf in the board byte order. buf must hold
// RecordSize bytes per sample. Channel and value are truncated to their bit widths.
func EncodeTo(buf []byte, samples []Sample) {
	for i, s := range samples {
		u := uint32(s.Channel&MaxChannel)<<channelShift | s.Value&MaxValue
		var corrected [RecordSize]byte
		binary.BigEndian.PutUint32(corrected[:], u)
		record := correct(corrected[:])
		copy(buf[i*RecordSize:], record[:])
	}
}

// Encode is the inverse of Decode
func Encode(samples []Sample) []byte {
	buf := make([]byte, len(samples)*RecordSize)
	EncodeTo(buf, samples)
	return buf
}

type FrameLayer struct {
	layers.BaseLayer
	Samples []Sample
}

var FrameLayerType = gopacket.RegisterLayerType(FrameLayerNum,
	gopacket.LayerTypeMetadata{Name: "FrameLayerType", Decoder: gopacket.DecodeFunc(decodeFrameLayer)})

func (f *FrameLayer) LayerType() gopacket.LayerType {
	return FrameLayerType
}

func (f *FrameLayer) CanDecode() gopacket.LayerClass {
	return FrameLayerType
}

// NextLayerType returns LayerTypeZero, a frame carries no payload
func (f *FrameLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// DecodeFromBytes attempts to decode the byte slice as a sensor frame
func (f *FrameLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	samples, err := Decode(data)
	if err != nil {
		df.SetTruncated()
		return err
	}
	f.BaseLayer = layers.BaseLayer{Contents: data}
	f.Samples = samples
	return nil
}

// SerializeTo serializes the samples into bytes and writes the bytes to the SerializeBuffer
func (f *FrameLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(len(f.Samples) * RecordSize)
	if err != nil {
		return err
	}
	EncodeTo(bytes, f.Samples)
	return nil
}

func decodeFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	f := &FrameLayer{}
	if err := f.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(f)
	return nil
}

// DecodePacket decodes raw through gopacket and returns the frame samples.
// Decode failures are returned as they were reported by the frame layer.
func DecodePacket(raw []byte) ([]Sample, error) {
	packet := gopacket.NewPacket(raw, FrameLayerType, gopacket.DecodeOptions{NoCopy: true})
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	layer := packet.Layer(FrameLayerType)
	if layer == nil {
		return nil, ErrMalformedFrame{Length: len(raw)}
	}
	return layer.(*FrameLayer).Samples, nil
}

// SerializeFrame builds the wire bytes for a set of samples
func SerializeFrame(samples []Sample) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, &FrameLayer{Samples: samples}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
