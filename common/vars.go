package common

// Version is set at build time via ldflags.
var Version = "dev"

// PackageName is used as the metrics namespace and the default log service tag.
const PackageName = "registration_ledger"
