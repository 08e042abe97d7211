package config

import "time"

// Default value constants.  The toolchain paths default to the layout of
// the reference AutoDock-GPU deployment image.
const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "plasmodock"
	DefaultDBMaxConns = 10

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "plasmodock-workers"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 2
	DefaultWorkerMaxRetries  = 3
	DefaultWorkerRetryDelay  = 60 * time.Second
	DefaultWorkerHealthPort  = 8081
	DefaultJobLockTTL        = 4 * time.Hour

	DefaultPrepareTimeout = 300 * time.Second
	DefaultSplitTimeout   = 1800 * time.Second
	DefaultDockingTimeout = 3600 * time.Second

	DefaultFLDCutoffLine = 23

	defaultMGLToolsRoot = "/home/autodockgpu/mgltools_x86_64Linux2_1.5.7"
	defaultUtilities24  = defaultMGLToolsRoot + "/MGLToolsPckgs/AutoDockTools/Utilities24"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling and before Validate() so that optional-but-defaulted
// fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "plasmodock"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.SessionTimeout == 0 {
		cfg.Kafka.SessionTimeout = 30 * time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = DefaultWorkerMaxRetries
	}
	if cfg.Worker.RetryDelay == 0 {
		cfg.Worker.RetryDelay = DefaultWorkerRetryDelay
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
	if cfg.Worker.JobLockTTL == 0 {
		cfg.Worker.JobLockTTL = DefaultJobLockTTL
	}

	if cfg.Docking.PrepareTimeout == 0 {
		cfg.Docking.PrepareTimeout = DefaultPrepareTimeout
	}
	if cfg.Docking.SplitTimeout == 0 {
		cfg.Docking.SplitTimeout = DefaultSplitTimeout
	}
	if cfg.Docking.DockingTimeout == 0 {
		cfg.Docking.DockingTimeout = DefaultDockingTimeout
	}

	if cfg.Toolchain.PythonSH == "" {
		cfg.Toolchain.PythonSH = defaultMGLToolsRoot + "/bin/pythonsh"
	}
	if cfg.Toolchain.PrepareReceptor == "" {
		cfg.Toolchain.PrepareReceptor = defaultUtilities24 + "/prepare_receptor4.py"
	}
	if cfg.Toolchain.PrepareLigand == "" {
		cfg.Toolchain.PrepareLigand = defaultUtilities24 + "/prepare_ligand4.py"
	}
	if cfg.Toolchain.PrepareGPF == "" {
		cfg.Toolchain.PrepareGPF = defaultUtilities24 + "/prepare_gpf4.py"
	}
	if cfg.Toolchain.AutoGrid == "" {
		cfg.Toolchain.AutoGrid = "/home/autodockgpu/x86_64Linux2/autogrid4"
	}
	if cfg.Toolchain.AD4Parameters == "" {
		cfg.Toolchain.AD4Parameters = "/home/autodockgpu/x86_64Linux2/AD4_parameters.dat"
	}
	if cfg.Toolchain.AutoDockGPU == "" {
		cfg.Toolchain.AutoDockGPU = "/home/autodockgpu/AutoDock-GPU/bin/autodock_gpu_128wi"
	}
	if cfg.Toolchain.OpenBabel == "" {
		cfg.Toolchain.OpenBabel = "/usr/bin/obabel"
	}
	if cfg.Toolchain.FLDCutoffLine == 0 {
		cfg.Toolchain.FLDCutoffLine = DefaultFLDCutoffLine
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
