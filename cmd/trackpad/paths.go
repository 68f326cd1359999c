package main

import "tools.zach/dev/trackpad/internal/paths"

// ///////////////////////////////////////////////
// Path Aliases
// ///////////////////////////////////////////////

// DataPaths aliases [paths.DataDir] so daemon code can use the path helpers
// without qualifying the internal package name.
type DataPaths = paths.DataDir
