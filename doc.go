// Package speechgen implements a realtime speech generation pipeline on top
// of the Azure OpenAI Realtime API.
//
// The package covers three concerns:
//   - Model registry: discovery of named model configurations from
//     environment-style key/value namespaces using the
//     ENDPOINT_<X>/API_KEY_<X>/... naming convention.
//   - Realtime session: a WebSocket duplex session that sends a generation
//     request and yields protocol messages one at a time, in arrival order.
//   - Streaming response assembler: a sequential receive loop that routes
//     transcript and audio deltas into a final (transcript, PCM) result and
//     serializes the audio as a WAV file.
//
// Basic usage:
//
//	registry := speechgen.NewRegistryFromEnv(speechgen.RegistryOptions{})
//	model, err := registry.Resolve("eastus")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess, err := speechgen.DialSession(ctx, speechgen.SessionConfigForModel(model))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sess.Close()
//
//	err = sess.Send(ctx, speechgen.GenerationRequest{
//		Modalities:   []string{"text", "audio"},
//		Instructions: "Explain quantum computing in simple terms.",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var asm speechgen.Assembler
//	result, err := asm.Run(ctx, sess, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	wav, err := speechgen.EncodeWAV(result.Audio)
//
// Audio is 16-bit little-endian mono PCM at 24 kHz throughout; EncodeWAV
// wraps the accumulated bytes in a canonical RIFF/WAVE header without
// resampling or transcoding.
package speechgen
