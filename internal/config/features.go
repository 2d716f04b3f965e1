package config

// Feature names as exposed to clients.
const (
	FeaturePetList    = "petListEnabled"
	FeaturePetEditing = "petEditingEnabled"
	FeatureVets       = "vetsEnabled"
	FeaturePetPhotos  = "petPhotosEnabled"
)

// Features gates API surfaces. A disabled feature's routes answer 404.
type Features struct {
	PetListEnabled    bool `yaml:"petListEnabled" json:"petListEnabled"`
	PetEditingEnabled bool `yaml:"petEditingEnabled" json:"petEditingEnabled"`
	VetsEnabled       bool `yaml:"vetsEnabled" json:"vetsEnabled"`
	PetPhotosEnabled  bool `yaml:"petPhotosEnabled" json:"petPhotosEnabled"`
}

// DefaultFeatures enables the pet list and editing; vets and photos are opt-in.
func DefaultFeatures() Features {
	return Features{PetListEnabled: true, PetEditingEnabled: true}
}

// Enabled reports whether the named feature is on. Unknown names are off.
func (f Features) Enabled(name string) bool {
	switch name {
	case FeaturePetList:
		return f.PetListEnabled
	case FeaturePetEditing:
		return f.PetEditingEnabled
	case FeatureVets:
		return f.VetsEnabled
	case FeaturePetPhotos:
		return f.PetPhotosEnabled
	}
	return false
}

// Map returns the flags keyed by feature name.
func (f Features) Map() map[string]bool {
	return map[string]bool{
		FeaturePetList:    f.PetListEnabled,
		FeaturePetEditing: f.PetEditingEnabled,
		FeatureVets:       f.VetsEnabled,
		FeaturePetPhotos:  f.PetPhotosEnabled,
	}
}
