package kitchen

// File is the root object of a kitchen file (.kitchen.yml).
// It is populated by the parser and merged with the optional local override file.
type File struct {
	Driver      Bag        `mapstructure:"driver"`
	Provisioner Bag        `mapstructure:"provisioner"`
	Verifier    Bag        `mapstructure:"verifier"`
	Platforms   []Platform `mapstructure:"platforms" validate:"required,min=1,dive"`
	Suites      []Suite    `mapstructure:"suites" validate:"required,min=1,dive"`

	// Root is the directory holding the kitchen file. It is not read from YAML.
	Root string `mapstructure:"-"`
}

// Platform describes one guest operating system image.
type Platform struct {
	Name        string `mapstructure:"name" validate:"required"`
	Driver      Bag    `mapstructure:"driver"`
	Provisioner Bag    `mapstructure:"provisioner"`
	Verifier    Bag    `mapstructure:"verifier"`
}

// Suite describes one set of provisioning and verification settings.
type Suite struct {
	Name        string   `mapstructure:"name" validate:"required"`
	Driver      Bag      `mapstructure:"driver"`
	Provisioner Bag      `mapstructure:"provisioner"`
	Verifier    Bag      `mapstructure:"verifier"`
	Includes    []string `mapstructure:"includes"`
	Excludes    []string `mapstructure:"excludes"`
}

// Instance is a suite bound to a platform, with fully merged configuration bags.
type Instance struct {
	Name         string
	SuiteName    string
	PlatformName string
	Root         string

	Driver      Bag
	Provisioner Bag
	Verifier    Bag
}

// String returns the display form used in log and console messages.
func (i *Instance) String() string {
	return "<" + i.Name + ">"
}
