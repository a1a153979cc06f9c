package bridge

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

// Topics relative to the board ID.
const (
	TopicInfo    = "info"
	TopicStatus  = "status"
	TopicString  = "string"
	TopicResult  = "result"
	TopicPins    = "pins/"
	TopicCommand = "cmd/"
)

// Status payloads.
var (
	StatusOnline  = []byte("online")
	StatusOffline = []byte("offline")
)

// PinTopic returns the topic of pin events.
func PinTopic(id string, pin int) string {
	return fmt.Sprintf("%s/%s%d", id, TopicPins, pin)
}

// PinEvent describes the value of a pin.
func PinEvent(pin *firmata.Pin, r firmata.Reading) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"pin":  numberValue(float64(pin.Number)),
		"name": stringValue(pin.String()),
		"mode": stringValue(pin.Mode().String()),
	}
	if r.Valid {
		fields["value"] = numberValue(r.Value)
		fields["at"] = timeValue(r.At)
	}
	return &structpb.Struct{Fields: fields}
}

// InfoEvent describes the board.
func InfoEvent(b *firmata.Board) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"name": stringValue(b.Name),
		"pins": numberValue(float64(len(b.Pins()))),
	}
	if fw, ok := b.Firmware(); ok {
		fields["firmware"] = stringValue(fw.String())
	}
	if v, ok := b.ProtocolVersion(); ok {
		fields["version"] = stringValue(v.String())
	}
	var pins []*structpb.Value
	for _, pin := range b.Pins() {
		var modes []*structpb.Value
		for _, m := range pin.SupportedModes() {
			modes = append(modes, stringValue(m.String()))
		}
		pins = append(pins, structValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"pin":   numberValue(float64(pin.Number)),
			"modes": listValue(modes),
		}}))
	}
	fields["layout"] = listValue(pins)
	return &structpb.Struct{Fields: fields}
}

// ResultEvent reports the result of a command.
func ResultEvent(cmd *Command, err error) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"op": stringValue(cmd.Op),
		"ok": boolValue(err == nil),
	}
	if err != nil {
		fields["error"] = stringValue(err.Error())
	}
	return &structpb.Struct{Fields: fields}
}

// StringEvent carries string data from the board.
func StringEvent(s string, at time.Time) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"text": stringValue(s),
		"at":   timeValue(at),
	}}
}

// EncodeEvent encodes an event into the wire format.
func EncodeEvent(ev *structpb.Struct) ([]byte, error) {
	return proto.Marshal(ev)
}

// DecodeEvent decodes an event.
func DecodeEvent(payload []byte) (*structpb.Struct, error) {
	var ev structpb.Struct
	if err := proto.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventJSON converts an encoded event to JSON for display.
func EventJSON(payload []byte) (string, error) {
	ev, err := DecodeEvent(payload)
	if err != nil {
		return "", err
	}
	return (&jsonpb.Marshaler{}).MarshalToString(ev)
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func boolValue(b bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: b}}
}

func listValue(values []*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: values}}}
}

func structValue(s *structpb.Struct) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: s}}
}

func timeValue(t time.Time) *structpb.Value {
	ts, err := ptypes.TimestampProto(t)
	if err != nil {
		return stringValue("")
	}
	return stringValue(ptypes.TimestampString(ts))
}
