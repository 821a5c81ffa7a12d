package server

// Verb identifies the FTP command word, case-folded to upper case.
type Verb string

const (
	VerbUSER Verb = "USER"
	VerbPASS Verb = "PASS"
	VerbQUIT Verb = "QUIT"
	VerbSYST Verb = "SYST"
	VerbTYPE Verb = "TYPE"
	VerbSTRU Verb = "STRU"
	VerbMODE Verb = "MODE"
	VerbNOOP Verb = "NOOP"
	VerbACCT Verb = "ACCT"
	VerbALLO Verb = "ALLO"
	VerbHELP Verb = "HELP"
	VerbFEAT Verb = "FEAT"
	VerbPWD  Verb = "PWD"
	VerbCWD  Verb = "CWD"
	VerbCDUP Verb = "CDUP"
	VerbMKD  Verb = "MKD"
	VerbRMD  Verb = "RMD"
	VerbDELE Verb = "DELE"
	VerbRNFR Verb = "RNFR"
	VerbRNTO Verb = "RNTO"
	VerbSIZE Verb = "SIZE"
	VerbMDTM Verb = "MDTM"
	VerbREST Verb = "REST"
	VerbPASV Verb = "PASV"
	VerbEPSV Verb = "EPSV"
	VerbPORT Verb = "PORT"
	VerbEPRT Verb = "EPRT"
	VerbRETR Verb = "RETR"
	VerbSTOR Verb = "STOR"
	VerbSTOU Verb = "STOU"
	VerbAPPE Verb = "APPE"
	VerbLIST Verb = "LIST"
	VerbNLST Verb = "NLST"
	VerbABOR Verb = "ABOR"
	VerbAUTH Verb = "AUTH"
	VerbPBSZ Verb = "PBSZ"
	VerbPROT Verb = "PROT"
	VerbCCC  Verb = "CCC"
)

// Command is a decoded, typed representation of one control-channel line.
// Arg carries the raw parameter text for verbs whose semantics need more
// than a single string (e.g. PORT's comma-separated octets); those verbs
// parse Arg again inside their handler.
type Command struct {
	Verb Verb
	Arg  string
}

// authExempt reports whether cmd may be dispatched regardless of session
// state.
func (c Command) authExempt() bool {
	switch c.Verb {
	case VerbHELP, VerbUSER, VerbPASS, VerbAUTH, VerbFEAT, VerbQUIT:
		return true
	}
	return false
}
