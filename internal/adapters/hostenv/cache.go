package hostenv

import "encoding/json"

func marshalEnv(env []string) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

func unmarshalEnv(data []byte, env *[]string) error {
	return json.Unmarshal(data, env)
}
