package zcl

// Cluster IDs used by the supported quirks.
const (
	ClusterOnOff            uint16 = 0x0006
	ClusterSonoffThermostat uint16 = 0xFC11
)

// On/Off cluster commands as sent by battery remotes.
const (
	CmdOff    uint8 = 0x00
	CmdOn     uint8 = 0x01
	CmdToggle uint8 = 0x02
)

// Sonoff TRVZB manufacturer-specific attributes. The 0x7xxx range is
// synthesized by the valve quirk and never written to the device.
const (
	AttrChildLock            uint16 = 0x0000
	AttrOpenWindow           uint16 = 0x6000
	AttrFrostProtectionTemp  uint16 = 0x6002
	AttrIdleSteps            uint16 = 0x6003
	AttrClosingSteps         uint16 = 0x6004
	AttrValveOpeningDegree   uint16 = 0x600B
	AttrValveClosingDegree   uint16 = 0x600C
	AttrExternalTempValue    uint16 = 0x600D
	AttrExternalTempEnable   uint16 = 0x600E
	AttrTempControlAccuracy  uint16 = 0x6011
	AttrValveMinLimit        uint16 = 0x7000
	AttrValveMaxLimit        uint16 = 0x7001
	AttrVirtualValvePosition uint16 = 0x7002
)

var clusters = map[uint16]*ClusterDef{
	ClusterOnOff: {
		ID:   ClusterOnOff,
		Name: "on_off",
		Attributes: []AttributeDef{
			{ID: 0x0000, Name: "on_off", Type: TypeBool, Access: AccessRead | AccessReport},
		},
		Commands: []CommandDef{
			{ID: CmdOff, Name: "off"},
			{ID: CmdOn, Name: "on"},
			{ID: CmdToggle, Name: "toggle"},
		},
	},
	ClusterSonoffThermostat: {
		ID:   ClusterSonoffThermostat,
		Name: "sonoff_thermostat",
		Attributes: []AttributeDef{
			{ID: AttrChildLock, Name: "child_lock", Type: TypeBool, Access: AccessRead | AccessWrite},
			{ID: AttrOpenWindow, Name: "open_window", Type: TypeBool, Access: AccessRead | AccessWrite},
			{ID: AttrFrostProtectionTemp, Name: "frost_protection_temperature", Type: TypeInt16, Access: AccessRead | AccessWrite},
			{ID: AttrIdleSteps, Name: "idle_steps", Type: TypeUint16, Access: AccessRead},
			{ID: AttrClosingSteps, Name: "closing_steps", Type: TypeUint16, Access: AccessRead},
			{ID: AttrValveOpeningDegree, Name: "valve_opening_degree", Type: TypeUint8, Access: AccessRead | AccessWrite | AccessReport},
			{ID: AttrValveClosingDegree, Name: "valve_closing_degree", Type: TypeUint8, Access: AccessRead | AccessWrite},
			{ID: AttrExternalTempValue, Name: "external_temperature_sensor_value", Type: TypeInt16, Access: AccessRead | AccessWrite},
			{ID: AttrExternalTempEnable, Name: "external_temperature_sensor_enable", Type: TypeUint8, Access: AccessRead | AccessWrite},
			{ID: AttrTempControlAccuracy, Name: "temperature_control_accuracy", Type: TypeInt16, Access: AccessRead | AccessWrite},
			{ID: AttrValveMinLimit, Name: "valve_min_limit", Type: TypeUint8, Access: AccessRead | AccessWrite | AccessVirtual},
			{ID: AttrValveMaxLimit, Name: "valve_max_limit", Type: TypeUint8, Access: AccessRead | AccessWrite | AccessVirtual},
			{ID: AttrVirtualValvePosition, Name: "virtual_valve_position", Type: TypeUint8, Access: AccessRead | AccessWrite | AccessVirtual},
		},
	},
}

// Lookup returns the definition of a known cluster, or nil.
func Lookup(id uint16) *ClusterDef {
	return clusters[id]
}
