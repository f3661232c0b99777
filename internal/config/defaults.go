package config

const (
	defaultConfigPath           = "~/.config/hotfolder/config.toml"
	defaultHotfolderDir         = "~/hotfolder"
	defaultUnitsDir             = "~/.local/share/hotfolder/units"
	defaultStateDir             = "~/.local/share/hotfolder/state"
	defaultLogDir               = "~/.local/share/hotfolder/logs"
	defaultQuietPeriodSeconds   = 300
	defaultSeparator            = "_"
	defaultTitlePlaceholder     = "$"
	defaultClaimMarker          = ".intranda_lock"
	defaultMinFreeMiB           = 1024
	defaultCatalogName          = "TIB-TOC"
	defaultCatalogProfile       = "PICA"
	defaultCatalogSearchField   = "8535"
	defaultCatalogTimeout       = 30
	defaultActivationProperty   = "OLR ausführen"
	defaultScannerProperty      = "Scanner-Name"
	defaultConferenceField      = "ConferenceIndicator"
	defaultImagePathField       = "pathimagefiles"
	defaultStepShell            = "/bin/sh"
	defaultStepTimeoutSeconds   = 3600
	defaultSchedule             = "@every 1m"
	defaultStartDelaySeconds    = 60
	defaultCycleTimeoutSeconds  = 1800
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultNotifyRequestTimeout = 10
)

func defaultJunkNames() []string {
	return []string{"thumbs.db", ".ds_store"}
}

func defaultConferenceTokens() []string {
	return []string{"kn", "Konferenzschrift"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			HotfolderDir: defaultHotfolderDir,
			UnitsDir:     defaultUnitsDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Hotfolder: Hotfolder{
			QuietPeriodSeconds:  defaultQuietPeriodSeconds,
			Separator:           defaultSeparator,
			TitlePlaceholder:    defaultTitlePlaceholder,
			ClaimMarker:         defaultClaimMarker,
			JunkNames:           defaultJunkNames(),
			QuarantineMalformed: true,
			MinFreeMiB:          defaultMinFreeMiB,
		},
		Catalog: Catalog{
			Name:           defaultCatalogName,
			Profile:        defaultCatalogProfile,
			SearchField:    defaultCatalogSearchField,
			TimeoutSeconds: defaultCatalogTimeout,
		},
		Workflow: Workflow{
			ActivationProperty: defaultActivationProperty,
			ScannerProperty:    defaultScannerProperty,
			ConferenceField:    defaultConferenceField,
			ConferenceTokens:   defaultConferenceTokens(),
			ImagePathField:     defaultImagePathField,
			StepShell:          defaultStepShell,
			StepTimeoutSeconds: defaultStepTimeoutSeconds,
		},
		Scheduler: Scheduler{
			Schedule:            defaultSchedule,
			StartDelaySeconds:   defaultStartDelaySeconds,
			CycleTimeoutSeconds: defaultCycleTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Ingested:       true,
			Quarantine:     true,
			Errors:         true,
		},
	}
}
