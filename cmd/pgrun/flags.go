package main

// Flag structs decouple cobra from the handlers for testing.

type StartFlags struct {
	ConfigPath string
	DataDir    string
	Host       string
	Port       uint16
	Daemon     bool
}

// DataDirFlags covers stop, status and url, which take only the identity.
type DataDirFlags struct {
	ConfigPath string
	DataDir    string
}
