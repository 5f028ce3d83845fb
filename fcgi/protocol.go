// Package fcgi defines the FastCGI wire-protocol tables: record types,
// the record header codec, header classification verdicts, protocol
// error codes, and per-connection request bookkeeping.
package fcgi

// RecordType identifies the type field of a FastCGI record header. It
// doubles as the channel tag of a demultiplexed logical stream.
type RecordType uint8

// FastCGI record types.
const (
	TypeBeginRequest    RecordType = 1
	TypeAbortRequest    RecordType = 2
	TypeEndRequest      RecordType = 3
	TypeParams          RecordType = 4
	TypeStdin           RecordType = 5
	TypeStdout          RecordType = 6
	TypeStderr          RecordType = 7
	TypeData            RecordType = 8
	TypeGetValues       RecordType = 9
	TypeGetValuesResult RecordType = 10
	TypeUnknownType     RecordType = 11
)

func (t RecordType) String() string {
	switch t {
	case TypeBeginRequest:
		return "BEGIN_REQUEST"
	case TypeAbortRequest:
		return "ABORT_REQUEST"
	case TypeEndRequest:
		return "END_REQUEST"
	case TypeParams:
		return "PARAMS"
	case TypeStdin:
		return "STDIN"
	case TypeStdout:
		return "STDOUT"
	case TypeStderr:
		return "STDERR"
	case TypeData:
		return "DATA"
	case TypeGetValues:
		return "GET_VALUES"
	case TypeGetValuesResult:
		return "GET_VALUES_RESULT"
	case TypeUnknownType:
		return "UNKNOWN_TYPE"
	}
	return "INVALID"
}

const (
	// Version1 is the only published FastCGI protocol version.
	Version1 = 1

	// HeaderLen is the fixed byte length of a record header.
	HeaderLen = 8

	// NullRequestID marks management records, which belong to the
	// connection rather than to any request.
	NullRequestID = 0

	// MaxContentLen and MaxPaddingLen bound a single record's body.
	MaxContentLen = 0xffff
	MaxPaddingLen = 0xff

	// MaxBufferLen caps a demultiplexer buffer at one full record.
	MaxBufferLen = HeaderLen + MaxContentLen + MaxPaddingLen
)

// Application roles carried in a begin-request body.
const (
	RoleResponder  uint16 = 1
	RoleAuthorizer uint16 = 2
	RoleFilter     uint16 = 3
)

// FlagKeepConn in a begin-request body asks the application to keep the
// connection open after the request completes.
const FlagKeepConn = 1

// BeginBodyLen is the byte length of a begin-request record body:
// role (2), flags (1), reserved (5).
const BeginBodyLen = 8

// HeaderClass is a header decoder's verdict on what a just-parsed
// record header means for the demultiplexer's next action.
type HeaderClass int

// Classification verdicts. The zero value is never valid, matching the
// zero-is-invalid convention of the error codes below.
const (
	ClassInvalid      HeaderClass = iota // unset or garbage verdict
	ClassStream                          // content record for the reader's channel
	ClassSkip                            // record to drain without delivery
	ClassBeginRequest                    // start of a new request on the connection
	ClassManagement                      // management record, already consumed
)

// Protocol error codes recorded on a request when its reader fails.
// Zero is never a valid code.
const (
	ErrCodeUnsupportedVersion = -2
	ErrCodeProtocol           = -3
	ErrCodeParams             = -4
	ErrCodeCallSeq            = -5
)
