package build

// Version info - can be set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = ""
)
