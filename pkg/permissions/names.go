package permissions

// Permission identifiers understood by the Android host.
const (
	Camera               = "android.permission.CAMERA"
	RecordAudio          = "android.permission.RECORD_AUDIO"
	ReadMediaVideo       = "android.permission.READ_MEDIA_VIDEO"
	ReadMediaImages      = "android.permission.READ_MEDIA_IMAGES"
	ReadExternalStorage  = "android.permission.READ_EXTERNAL_STORAGE"
	WriteExternalStorage = "android.permission.WRITE_EXTERNAL_STORAGE"
	PostNotifications    = "android.permission.POST_NOTIFICATIONS"
	AccessFineLocation   = "android.permission.ACCESS_FINE_LOCATION"
)
