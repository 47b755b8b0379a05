package sender

const (
	//The network only accepts current nonce + 1
	NONCE_STEP = 1
)
