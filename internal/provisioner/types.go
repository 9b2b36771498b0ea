package provisioner

// Provisioner defines the commands and local sandbox a driver needs to
// converge an instance. An empty command means there is nothing to run.
type Provisioner interface {
	// CreateSandbox stages the files to upload into a local temporary directory.
	CreateSandbox() error
	// SandboxPath is the local directory created by CreateSandbox.
	SandboxPath() string
	// RootPath is the directory on the guest the sandbox is uploaded to.
	RootPath() string

	InstallCommand() string
	InitCommand() string
	PrepareCommand() string
	RunCommand() string

	// CleanupSandbox removes the sandbox. It is safe to call more than once.
	CleanupSandbox() error
}
