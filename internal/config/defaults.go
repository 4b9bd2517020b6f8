package config

const (
	defaultOutputDir = "~/.local/share/liquidplan/runs"
	defaultLogDir    = "~/.local/share/liquidplan/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultProtocolKind        = ProtocolExtraction
	defaultNumSamples          = 96
	defaultSampleVolume        = 410
	defaultElutionFinalVolume  = 50
	defaultMagnetHeight        = 6
	defaultBeadsWellFirstMixes = 10
	defaultBeadsWellMixes      = 3
	defaultBeadsMixes          = 10
	defaultWashMixes           = 10
	defaultElutionMixes        = 10
	defaultTemperature         = 4

	defaultDispenseVolume       = 5
	defaultDispenseAirGap       = 2
	defaultDispensePickupHeight = 0.2
	defaultDispenseDropHeight   = -10
	defaultDispenseFlowRate     = 1

	defaultPipetteName     = "p300_multi_gen2"
	defaultPipetteChannels = 8
	defaultTipRacks        = 7
	defaultTipCapacity     = 180

	defaultReservoirWells   = 12
	defaultCrossSectionArea = 8 * 71
	defaultChannelMaxVolume = 18000
	defaultMinHeight        = 0.4

	defaultDeadVolume          = 1400
	defaultBeadsDeadVolume     = 2000
	defaultConeVolume          = 695
	defaultDisposalVolume      = 1
	defaultFlowRateAspirate    = 25
	defaultFlowRateDispense    = 100
	defaultAirGapBottom        = 5
	defaultReagentVolume       = 200
	defaultElutionVolume       = 50
	defaultWasteCapacity       = 96 * 3
	defaultNotifyTimeout       = 10
	defaultNtfyTopicEnvVar     = "LIQUIDPLAN_NTFY_TOPIC"
	defaultHistoryDatabaseName = "history.db"
	defaultLockFileName        = "liquidplan.lock"
)

// Protocol kinds.
const (
	ProtocolExtraction = "extraction"
	ProtocolDispense   = "dispense"
)

// Reagent keys used by the extraction workflow.
const (
	ReagentBeads   = "beads"
	ReagentWash1   = "wash1"
	ReagentWash2   = "wash2"
	ReagentElution = "elution"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Protocol: Protocol{
			Kind:                 defaultProtocolKind,
			NumSamples:           defaultNumSamples,
			SampleVolume:         defaultSampleVolume,
			ElutionFinalVolume:   defaultElutionFinalVolume,
			MagnetHeight:         defaultMagnetHeight,
			BeadsWellFirstMixes:  defaultBeadsWellFirstMixes,
			BeadsWellMixes:       defaultBeadsWellMixes,
			BeadsMixes:           defaultBeadsMixes,
			Wash1Mixes:           defaultWashMixes,
			Wash2Mixes:           defaultWashMixes,
			ElutionMixes:         defaultElutionMixes,
			Temperature:          defaultTemperature,
			DispenseVolume:       defaultDispenseVolume,
			DispenseAirGap:       defaultDispenseAirGap,
			DispensePickupHeight: defaultDispensePickupHeight,
			DispenseDropHeight:   defaultDispenseDropHeight,
			DispenseFlowRate:     defaultDispenseFlowRate,
		},
		Pipette: Pipette{
			Name:        defaultPipetteName,
			Channels:    defaultPipetteChannels,
			TipRacks:    defaultTipRacks,
			TipCapacity: defaultTipCapacity,
		},
		Reservoir: Reservoir{
			Wells:            defaultReservoirWells,
			CrossSectionArea: defaultCrossSectionArea,
			ChannelMaxVolume: defaultChannelMaxVolume,
			MinHeight:        defaultMinHeight,
		},
		Tips: Tips{
			WasteCapacity: defaultWasteCapacity,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			TipReplacement: true,
			WasteBin:       true,
			RunCompleted:   true,
			Errors:         true,
		},
	}
}

// DefaultExtractionReagents returns the Station B reagent catalogue: beads in
// wells 1-4, the two washes from wells 5 and 9, and elution buffer in well 12.
func DefaultExtractionReagents() []Reagent {
	beads := defaultReagent(ReagentBeads, "Beads", defaultReagentVolume, 1)
	beads.DeadVolume = defaultBeadsDeadVolume
	return []Reagent{
		beads,
		defaultReagent(ReagentWash1, "Wash 1", defaultReagentVolume, 5),
		defaultReagent(ReagentWash2, "Wash 2", defaultReagentVolume, 9),
		defaultReagent(ReagentElution, "Elution", defaultElutionVolume, 12),
	}
}

func defaultReagent(key, name string, volumePerSample float64, firstWell int) Reagent {
	return Reagent{
		Key:                 key,
		Name:                name,
		VolumePerSample:     volumePerSample,
		DeadVolume:          defaultDeadVolume,
		ConeVolume:          defaultConeVolume,
		DisposalVolume:      defaultDisposalVolume,
		FirstWell:           firstWell,
		FlowRateAspirate:    defaultFlowRateAspirate,
		FlowRateDispense:    defaultFlowRateDispense,
		FlowRateAspirateMix: defaultFlowRateAspirate,
		FlowRateDispenseMix: defaultFlowRateDispense,
		AirGapBottom:        defaultAirGapBottom,
	}
}
