package common

// MidasVersion is the current Midas version as a string.
const MidasVersion string = "0.2.0"

// ProfileFileName is the name of the file holding build profiles.  It is
// looked up in the directory of the program being compiled.
const ProfileFileName string = "midas.toml"

// IRFileExt is the file extension used for emitted LLVM IR.
const IRFileExt string = ".ll"

// EntryFuncName is the name of the function `midas run` executes.
const EntryFuncName string = "main"
