package config

// Lanefile represents the structure of the lane.yaml configuration file.
type Lanefile struct {
	Version string             `yaml:"version"`
	Name    string             `yaml:"name"`
	Root    string             `yaml:"root"`
	Jobs    map[string]*JobDTO `yaml:"jobs"`
}

// JobDTO represents a job definition in the configuration.
type JobDTO struct {
	Matrix      map[string][]string `yaml:"matrix"`
	Checkout    *CheckoutDTO        `yaml:"checkout"`
	Tools       map[string]string   `yaml:"tools"`
	Environment map[string]string   `yaml:"environment"`
	WorkingDir  string              `yaml:"workingDir"`
	Needs       []string            `yaml:"needs"`
	Steps       []StepDTO           `yaml:"steps"`
}

// CheckoutDTO represents a source checkout declaration.
type CheckoutDTO struct {
	Repository string `yaml:"repository"`
	Ref        string `yaml:"ref"`
}

// StepDTO represents a step definition in the configuration.
type StepDTO struct {
	Name        string            `yaml:"name"`
	Run         []string          `yaml:"run"`
	Environment map[string]string `yaml:"environment"`
	WorkingDir  string            `yaml:"workingDir"`
	Cache       *CacheDTO         `yaml:"cache"`
}

// CacheDTO represents a step cache declaration.
type CacheDTO struct {
	Key   string   `yaml:"key"`
	Paths []string `yaml:"paths"`
}
