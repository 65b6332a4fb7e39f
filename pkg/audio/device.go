package audio

import (
	"fmt"
	"strings"
)

// DeviceType identifies a class of audio device. Input devices carry DeviceBitIn.
type DeviceType uint32

// DeviceBitIn marks input device types.
const DeviceBitIn DeviceType = 0x80000000

const (
	DeviceNone DeviceType = 0x0

	DeviceOutEarpiece       DeviceType = 0x1
	DeviceOutSpeaker        DeviceType = 0x2
	DeviceOutWiredHeadset   DeviceType = 0x4
	DeviceOutWiredHeadphone DeviceType = 0x8
	DeviceOutBluetoothSCO   DeviceType = 0x10
	DeviceOutBluetoothA2DP  DeviceType = 0x80
	DeviceOutHDMI           DeviceType = 0x400
	DeviceOutUSBAccessory   DeviceType = 0x2000
	DeviceOutUSBDevice      DeviceType = 0x4000
	DeviceOutRemoteSubmix   DeviceType = 0x8000
	DeviceOutTelephonyTx    DeviceType = 0x10000
	DeviceOutLine           DeviceType = 0x20000
	DeviceOutSPDIF          DeviceType = 0x80000
	DeviceOutFM             DeviceType = 0x100000
	DeviceOutSpeakerSafe    DeviceType = 0x400000
	DeviceOutBus            DeviceType = 0x1000000
	DeviceOutProxy          DeviceType = 0x2000000
	DeviceOutUSBHeadset     DeviceType = 0x4000000
	DeviceOutEchoCanceller  DeviceType = 0x10000000
	DeviceInCommunication   DeviceType = DeviceBitIn | 0x1
	DeviceInAmbient         DeviceType = DeviceBitIn | 0x2
	DeviceInBuiltinMic      DeviceType = DeviceBitIn | 0x4
	DeviceInBluetoothSCO    DeviceType = DeviceBitIn | 0x8
	DeviceInWiredHeadset    DeviceType = DeviceBitIn | 0x10
	DeviceInHDMI            DeviceType = DeviceBitIn | 0x20
	DeviceInTelephonyRx     DeviceType = DeviceBitIn | 0x40
	DeviceInBackMic         DeviceType = DeviceBitIn | 0x80
	DeviceInRemoteSubmix    DeviceType = DeviceBitIn | 0x100
	DeviceInUSBAccessory    DeviceType = DeviceBitIn | 0x800
	DeviceInUSBDevice       DeviceType = DeviceBitIn | 0x1000
	DeviceInFMTuner         DeviceType = DeviceBitIn | 0x2000
	DeviceInLine            DeviceType = DeviceBitIn | 0x8000
	DeviceInEchoReference   DeviceType = DeviceBitIn | 0x10000000
	DeviceInBus             DeviceType = DeviceBitIn | 0x100000
	DeviceInUSBHeadset      DeviceType = DeviceBitIn | 0x2000000
	DeviceInBluetoothBLE    DeviceType = DeviceBitIn | 0x4000000
	DeviceInDefault         DeviceType = DeviceBitIn | 0x40000000
	DeviceOutDefault        DeviceType = 0x40000000
)

var deviceTypeNames = map[string]DeviceType{
	"AUDIO_DEVICE_NONE":                     DeviceNone,
	"AUDIO_DEVICE_OUT_EARPIECE":             DeviceOutEarpiece,
	"AUDIO_DEVICE_OUT_SPEAKER":              DeviceOutSpeaker,
	"AUDIO_DEVICE_OUT_WIRED_HEADSET":        DeviceOutWiredHeadset,
	"AUDIO_DEVICE_OUT_WIRED_HEADPHONE":      DeviceOutWiredHeadphone,
	"AUDIO_DEVICE_OUT_BLUETOOTH_SCO":        DeviceOutBluetoothSCO,
	"AUDIO_DEVICE_OUT_BLUETOOTH_A2DP":       DeviceOutBluetoothA2DP,
	"AUDIO_DEVICE_OUT_HDMI":                 DeviceOutHDMI,
	"AUDIO_DEVICE_OUT_AUX_DIGITAL":          DeviceOutHDMI,
	"AUDIO_DEVICE_OUT_USB_ACCESSORY":        DeviceOutUSBAccessory,
	"AUDIO_DEVICE_OUT_USB_DEVICE":           DeviceOutUSBDevice,
	"AUDIO_DEVICE_OUT_REMOTE_SUBMIX":        DeviceOutRemoteSubmix,
	"AUDIO_DEVICE_OUT_TELEPHONY_TX":         DeviceOutTelephonyTx,
	"AUDIO_DEVICE_OUT_LINE":                 DeviceOutLine,
	"AUDIO_DEVICE_OUT_SPDIF":                DeviceOutSPDIF,
	"AUDIO_DEVICE_OUT_FM":                   DeviceOutFM,
	"AUDIO_DEVICE_OUT_SPEAKER_SAFE":         DeviceOutSpeakerSafe,
	"AUDIO_DEVICE_OUT_BUS":                  DeviceOutBus,
	"AUDIO_DEVICE_OUT_PROXY":                DeviceOutProxy,
	"AUDIO_DEVICE_OUT_USB_HEADSET":          DeviceOutUSBHeadset,
	"AUDIO_DEVICE_OUT_ECHO_CANCELLER":       DeviceOutEchoCanceller,
	"AUDIO_DEVICE_OUT_DEFAULT":              DeviceOutDefault,
	"AUDIO_DEVICE_IN_COMMUNICATION":         DeviceInCommunication,
	"AUDIO_DEVICE_IN_AMBIENT":               DeviceInAmbient,
	"AUDIO_DEVICE_IN_BUILTIN_MIC":           DeviceInBuiltinMic,
	"AUDIO_DEVICE_IN_BLUETOOTH_SCO_HEADSET": DeviceInBluetoothSCO,
	"AUDIO_DEVICE_IN_WIRED_HEADSET":         DeviceInWiredHeadset,
	"AUDIO_DEVICE_IN_HDMI":                  DeviceInHDMI,
	"AUDIO_DEVICE_IN_AUX_DIGITAL":           DeviceInHDMI,
	"AUDIO_DEVICE_IN_TELEPHONY_RX":          DeviceInTelephonyRx,
	"AUDIO_DEVICE_IN_VOICE_CALL":            DeviceInTelephonyRx,
	"AUDIO_DEVICE_IN_BACK_MIC":              DeviceInBackMic,
	"AUDIO_DEVICE_IN_REMOTE_SUBMIX":         DeviceInRemoteSubmix,
	"AUDIO_DEVICE_IN_USB_ACCESSORY":         DeviceInUSBAccessory,
	"AUDIO_DEVICE_IN_USB_DEVICE":            DeviceInUSBDevice,
	"AUDIO_DEVICE_IN_FM_TUNER":              DeviceInFMTuner,
	"AUDIO_DEVICE_IN_LINE":                  DeviceInLine,
	"AUDIO_DEVICE_IN_ECHO_REFERENCE":        DeviceInEchoReference,
	"AUDIO_DEVICE_IN_BUS":                   DeviceInBus,
	"AUDIO_DEVICE_IN_USB_HEADSET":           DeviceInUSBHeadset,
	"AUDIO_DEVICE_IN_BLE_HEADSET":           DeviceInBluetoothBLE,
	"AUDIO_DEVICE_IN_DEFAULT":               DeviceInDefault,
}

// canonical names win over aliases when rendering.
var deviceTypeByValue = func() map[DeviceType]string {
	aliases := map[string]bool{
		"AUDIO_DEVICE_OUT_AUX_DIGITAL": true,
		"AUDIO_DEVICE_IN_AUX_DIGITAL":  true,
		"AUDIO_DEVICE_IN_VOICE_CALL":   true,
	}
	out := make(map[DeviceType]string, len(deviceTypeNames))
	for name, v := range deviceTypeNames {
		if aliases[name] {
			continue
		}
		out[v] = name
	}
	return out
}()

// ParseDeviceType parses a device type name such as "AUDIO_DEVICE_OUT_SPEAKER".
func ParseDeviceType(s string) (DeviceType, error) {
	v, ok := deviceTypeNames[strings.TrimSpace(s)]
	if !ok {
		return DeviceNone, fmt.Errorf("unknown device type %q", s)
	}
	return v, nil
}

// IsInput reports whether d is an input device type.
func (d DeviceType) IsInput() bool { return d&DeviceBitIn != 0 }

// IsOutput reports whether d is an output device type.
func (d DeviceType) IsOutput() bool { return d != DeviceNone && d&DeviceBitIn == 0 }

// IsRemoteSubmix reports whether d is either remote submix endpoint.
func (d DeviceType) IsRemoteSubmix() bool {
	return d == DeviceOutRemoteSubmix || d == DeviceInRemoteSubmix
}

func (d DeviceType) String() string {
	if name, ok := deviceTypeByValue[d]; ok {
		return name
	}
	return fmt.Sprintf("AUDIO_DEVICE_0x%x", uint32(d))
}
