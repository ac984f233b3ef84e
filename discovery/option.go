package discovery

// Option is the abbreviated key of a discovery payload field.
type Option string

// Options for components
const (
	Availability              Option = "avty"
	AvailabilityTopic         Option = "avty_t"
	DeviceClass               Option = "dev_cla"
	Icon                      Option = "ic"
	Name                      Option = "name"
	ObjectID                  Option = "obj_id"
	Platform                  Option = "p"
	PayloadAvailable          Option = "pl_avail"
	PayloadNotAvailable       Option = "pl_not_avail"
	StateClass                Option = "stat_cla"
	StateTopic                Option = "stat_t"
	SuggestedDisplayPrecision Option = "sug_dsp_prc"
	UniqueID                  Option = "uniq_id"
	UnitOfMeasurement         Option = "unit_of_meas"
)
