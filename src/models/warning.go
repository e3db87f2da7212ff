package models

// Severity grades a DataWarning. Recoverable data problems never escalate to
// errors; they surface through this type instead.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// WarningCode categorizes warnings by subsystem.
type WarningCode string

const (
	WarnMalformedRecord     WarningCode = "MALFORMED_RECORD"
	WarnRecordRecovered     WarningCode = "CORRUPTED_RECORD_RECOVERED"
	WarnRecordUnrecoverable WarningCode = "CORRUPTED_RECORD_UNRECOVERABLE"
	WarnUnknownPriceLevel   WarningCode = "UNKNOWN_PRICE_LEVEL"
	WarnNoBasePrice         WarningCode = "NO_BASE_PRICE"
	WarnCurrencyMismatch    WarningCode = "CURRENCY_MISMATCH"
	WarnInvalidDateRange    WarningCode = "INVALID_DATE_RANGE"
	WarnManufacturerLoad    WarningCode = "MANUFACTURER_LOAD_FAILURE"
	WarnNoPriceData         WarningCode = "NO_PRICE_DATA"
)

// DataWarning is a non-fatal issue found while loading catalog data or
// computing a price. It is accumulated per load/calculation call.
type DataWarning struct {
	Severity Severity    `json:"severity"`
	Code     WarningCode `json:"code"`
	Message  string      `json:"message"`
	// Locator identifies the originating record when known, e.g.
	// "kinnarps/serie-b/prices#42".
	Locator string `json:"locator,omitempty"`
}

// NewWarning builds a DataWarning without a record locator.
func NewWarning(severity Severity, code WarningCode, message string) DataWarning {
	return DataWarning{Severity: severity, Code: code, Message: message}
}

// At returns a copy of the warning with a record locator attached.
func (w DataWarning) At(locator string) DataWarning {
	w.Locator = locator
	return w
}
