package common

// Names of the native runtime string library.  These symbols are provided by
// the runtime linked into every Midas program; the generator only declares
// them.
const (
	RTInitStr     = "__vinitStr"
	RTAddStr      = "__vaddStr"
	RTEqStr       = "__veqStr"
	RTPrintStr    = "__vprintStr"
	RTIntToCStr   = "__vintToCStr"
	RTMalloc      = "malloc"
	RTFree        = "free"
	RTTrap        = "llvm.trap"
	IntStrBufSize = 21
)
