package root

// Version is reported by /healthz, set by the version command package.
var Version = ""
