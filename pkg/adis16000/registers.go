package adis16000

// Register is an 8-bit address naming a 16-bit device register. Registers are
// paged: PAGE_ID selects the gateway (page 0) or one of the sensor nodes.
type Register uint8

// Registers available on every page.
const (
	RegPageID Register = 0x00
)

// Gateway registers (page 0).
const (
	RegCmdData   Register = 0x12
	RegGPOCtrl   Register = 0x32
	RegGlobCmdG  Register = 0x3E
	RegDiagStatG Register = 0x40
	RegProdID    Register = 0x56
)

// Sensor node registers (page = node address).
const (
	RegFlashCnt  Register = 0x02
	RegXBuf      Register = 0x04
	RegYBuf      Register = 0x06
	RegTempOut   Register = 0x08
	RegSupplyOut Register = 0x0A
	RegBufPntr   Register = 0x0C
	RegRecCtrl   Register = 0x1A
	RegUpdatInt  Register = 0x2C
	RegIntScl    Register = 0x2E
	RegGlobCmdS  Register = 0x3E
)

// GLOB_CMD_G values.
const (
	GatewayCmdStartJoin   uint16 = 0x0001
	GatewayCmdTransmit    uint16 = 0x0002
	GatewayCmdFlashUpdate uint16 = 0x0040
	GatewayCmdRemove      uint16 = 0x0100
)

// GLOB_CMD_S values.
const (
	SensorCmdFlashUpdate  uint16 = 0x0040
	SensorCmdStartCapture uint16 = 0x0800
)

// GPO_CTRL patterns routing data ready to DIO1 / DIO2.
const (
	gpoDataReadyDIO1 uint16 = 0x0008
	gpoDataReadyDIO2 uint16 = 0x0020
)

// GatewayPage is the page holding the gateway's own registers.
const GatewayPage = 0x00

// ProductID is the value PROD_ID reads back on a genuine part.
const ProductID = 16000

const (
	// BufferLen is the number of samples returned by ReadFFTBuffer.
	BufferLen = 512
	// AxisLen is the number of samples per axis; Y starts at AxisLen.
	AxisLen = BufferLen / 2
)

func (r Register) String() string {
	switch r {
	case RegPageID:
		return "PAGE_ID"
	case RegCmdData:
		return "CMD_DATA"
	case RegGPOCtrl:
		return "GPO_CTRL"
	case RegGlobCmdG:
		return "GLOB_CMD"
	case RegDiagStatG:
		return "DIAG_STAT"
	case RegProdID:
		return "PROD_ID"
	case RegFlashCnt:
		return "FLASH_CNT"
	case RegXBuf:
		return "X_BUF"
	case RegYBuf:
		return "Y_BUF"
	case RegTempOut:
		return "TEMP_OUT"
	case RegSupplyOut:
		return "SUPPLY_OUT"
	case RegBufPntr:
		return "BUF_PNTR"
	case RegRecCtrl:
		return "REC_CTRL"
	case RegUpdatInt:
		return "UPDAT_INT"
	case RegIntScl:
		return "INT_SCL"
	default:
		return "(unknown register)"
	}
}
