package world

// Stage стадия жизненного цикла чанка. Стадии только растут.
type Stage uint32

const (
	StageEmpty Stage = iota
	StageGenerationInProgress
	StageGenerationComplete
	StageLocalLightingInProgress
	StageLocalLightingComplete
	StageNeighbourLightingInProgress
	StageNeighbourLightingComplete
	StageMeshingInProgress
	StageMeshingComplete
	StageReady

	stageCount
)

var stageNames = [stageCount]string{
	"empty",
	"generation_in_progress",
	"generation_complete",
	"local_lighting_in_progress",
	"local_lighting_complete",
	"neighbour_lighting_in_progress",
	"neighbour_lighting_complete",
	"meshing_in_progress",
	"meshing_complete",
	"ready",
}

func (s Stage) String() string {
	if s >= stageCount {
		return "unknown"
	}
	return stageNames[s]
}

// JobType тип задачи планировщика; каждому соответствует бит дедупликации
type JobType uint8

const (
	JobGeneration JobType = iota
	JobLocalLighting
	JobNeighbourLighting
	JobMeshing

	jobTypeCount
)

var jobNames = [jobTypeCount]string{"generation", "local_lighting", "neighbour_lighting", "meshing"}

func (t JobType) String() string {
	if t >= jobTypeCount {
		return "unknown"
	}
	return jobNames[t]
}

func (t JobType) bit() uint32 { return 1 << uint32(t) }

// jobStages описывает стадии, которые задача требует и выставляет
type jobStages struct {
	required   Stage // стадия самого чанка и минимум для соседей
	inProgress Stage
	complete   Stage
	prereq     JobType // задача, доводящая чанк до required
}

var stagesByJob = [jobTypeCount]jobStages{
	JobGeneration:        {StageEmpty, StageGenerationInProgress, StageGenerationComplete, JobGeneration},
	JobLocalLighting:     {StageGenerationComplete, StageLocalLightingInProgress, StageLocalLightingComplete, JobGeneration},
	JobNeighbourLighting: {StageLocalLightingComplete, StageNeighbourLightingInProgress, StageNeighbourLightingComplete, JobLocalLighting},
	JobMeshing:           {StageNeighbourLightingComplete, StageMeshingInProgress, StageMeshingComplete, JobNeighbourLighting},
}
