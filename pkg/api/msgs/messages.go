package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/zwproxy/pkg/framework"
)

// CommandErr is the generic reply representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Message: err.Error()}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// ZWaveFrame carries raw link bytes in either direction: a data frame,
// a single control byte or bootloader output.
type ZWaveFrame struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

// NewMessage implements Message.
func (m *ZWaveFrame) NewMessage() fx.Message { return &ZWaveFrame{} }

// TypeID implements SerializableMessage.
func (m *ZWaveFrame) TypeID() uint32 { return ZWaveFrameTypeID }

// Serializable implements SerializableMessage.
func (m *ZWaveFrame) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ZWaveFrame) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ZWaveFrame) Reset() { *m = ZWaveFrame{} }

// String implements proto.Message.
func (m *ZWaveFrame) String() string { return proto.CompactTextString(m) }

// ZWaveRequest types.
const (
	ZWaveRequestSubscribe      uint32 = 1
	ZWaveRequestUnsubscribe    uint32 = 2
	ZWaveRequestQueryStatus    uint32 = 3
	ZWaveRequestResetCache     uint32 = 4
	ZWaveRequestExitBootloader uint32 = 5
)

// ZWaveRequest is a command replied with ZWaveStatus or CommandErr.
type ZWaveRequest struct {
	Type uint32 `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
}

// NewMessage implements Message.
func (m *ZWaveRequest) NewMessage() fx.Message { return &ZWaveRequest{} }

// TypeID implements SerializableMessage.
func (m *ZWaveRequest) TypeID() uint32 { return ZWaveRequestTypeID }

// Serializable implements SerializableMessage.
func (m *ZWaveRequest) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ZWaveRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ZWaveRequest) Reset() { *m = ZWaveRequest{} }

// String implements proto.Message.
func (m *ZWaveRequest) String() string { return proto.CompactTextString(m) }

// ZWaveStatus replies a ZWaveRequest.
type ZWaveStatus struct {
	HomeId       uint32 `protobuf:"varint,1,opt,name=home_id,json=homeId,proto3" json:"home_id,omitempty"`
	FeatureFlags uint32 `protobuf:"varint,2,opt,name=feature_flags,json=featureFlags,proto3" json:"feature_flags,omitempty"`
	InBootloader bool   `protobuf:"varint,3,opt,name=in_bootloader,json=inBootloader,proto3" json:"in_bootloader,omitempty"`
	Subscribed   bool   `protobuf:"varint,4,opt,name=subscribed,proto3" json:"subscribed,omitempty"`
}

// NewMessage implements Message.
func (m *ZWaveStatus) NewMessage() fx.Message { return &ZWaveStatus{} }

// TypeID implements SerializableMessage.
func (m *ZWaveStatus) TypeID() uint32 { return ZWaveStatusTypeID }

// Serializable implements SerializableMessage.
func (m *ZWaveStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ZWaveStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ZWaveStatus) Reset() { *m = ZWaveStatus{} }

// String implements proto.Message.
func (m *ZWaveStatus) String() string { return proto.CompactTextString(m) }

// HomeIDString formats the home ID as aa:bb:cc:dd.
func (m *ZWaveStatus) HomeIDString() string {
	id := m.HomeId
	return fmt.Sprintf("%02x:%02x:%02x:%02x", byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

// ZWaveStatusEvent is sent to the subscriber when the status changes.
type ZWaveStatusEvent struct {
	ZWaveStatus
}

// NewMessage implements Message.
func (m *ZWaveStatusEvent) NewMessage() fx.Message { return &ZWaveStatusEvent{} }

// TypeID implements SerializableMessage.
func (m *ZWaveStatusEvent) TypeID() uint32 { return ZWaveStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *ZWaveStatusEvent) Serializable() proto.Message { return &m.ZWaveStatus }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupZWave   uint32 = 0x005a0000
)

// TypeIDs
const (
	CommandErrTypeID       uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	ZWaveFrameTypeID       uint32 = GroupZWave | TypeIDKindEvent | 0x0000
	ZWaveStatusEventTypeID uint32 = GroupZWave | TypeIDKindEvent | 0x0001
	ZWaveRequestTypeID     uint32 = GroupZWave | 0x0001
	ZWaveStatusTypeID      uint32 = ZWaveRequestTypeID | TypeIDMaskReply
)
