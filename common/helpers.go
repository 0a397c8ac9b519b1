package common

import "os/user"

// IsRunningAsRoot reports whether the process runs as root. I2C device
// nodes and service installation usually need it.
func IsRunningAsRoot() bool {
	usr, err := user.Current()
	if err != nil {
		return false
	}
	return usr.Uid == "0"
}
