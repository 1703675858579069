// ==============================================================================
// FLOW SIMULATOR - cmd/simulate_flow/main.go
// ==============================================================================
// Walks a full verification session in-process against a stub backend:
// form, document capture (passport and driver's license variants), four
// selfies, review, submit, result. Prints [PASS]/[FAIL] per stage.
// ==============================================================================

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"kycflow/internal/capture"
	"kycflow/internal/domain"
	"kycflow/internal/flow"
	"kycflow/internal/session"
	"kycflow/internal/verification"
	"kycflow/pkg/logger"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	fmt.Println("=========================================================")
	fmt.Println("SIMULATING GUIDED KYC VERIFICATION FLOW (End-to-End)")
	fmt.Println("=========================================================")

	backend := httptest.NewServer(http.HandlerFunc(stubVerify))
	defer backend.Close()
	fmt.Printf("[PASS] Stub verification backend: %s\n", backend.URL)

	logg := logger.New("simulate-flow")
	store := session.NewMemoryStore(10 * time.Minute)
	verifier := verification.NewClient(backend.URL, 30*time.Second, logg)
	orch := flow.NewOrchestrator(store, verifier, flow.NewBroadcaster(), logg)

	runScenario(orch, "passport", false)
	runScenario(orch, "driver_license", true)

	fmt.Println("\n=========================================================")
	fmt.Println("ALL SCENARIOS PASSED")
	fmt.Println("=========================================================")
}

func runScenario(orch *flow.Orchestrator, docType string, expectBack bool) {
	ctx := context.Background()

	fmt.Printf("\n--- Scenario: %s ---\n", docType)

	state, err := orch.CreateSession(ctx)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	id := state.ID
	fmt.Printf("[PASS] Session created: %s (user %s)\n", id, state.UserID)

	if _, err := orch.Start(ctx, id); err != nil {
		log.Fatalf("start: %v", err)
	}
	if _, err := orch.UpdateDetails(ctx, id, domain.PersonalDetails{
		Name:         "Jane",
		Surname:      "Doe",
		DateOfBirth:  "1990-01-01",
		DocumentType: domain.DocumentType(docType),
	}); err != nil {
		log.Fatalf("details: %v", err)
	}
	state, err = orch.AdvanceToDocument(ctx, id)
	if err != nil {
		log.Fatalf("advance: %v", err)
	}
	expectStep(state, domain.StepDocumentCapture)
	fmt.Println("[PASS] Form completed, entering document capture")

	// Document capture via the scripted engine contract.
	docEngine := capture.NewScriptedEngine(
		capture.ScriptedFrame{Image: jpegFrame("front"), Meta: capture.Metadata{"side": "front"}},
	)
	runEngine(docEngine, func(img capture.Image) {
		if state, err = orch.CaptureDocument(ctx, id, flow.SideFront, img); err != nil {
			log.Fatalf("capture front: %v", err)
		}
	})

	if expectBack {
		expectStep(state, domain.StepDocumentBack)
		fmt.Println("[PASS] Front captured, back side requested")
		if state, err = orch.CaptureDocument(ctx, id, flow.SideBack, jpegFrame("back")); err != nil {
			log.Fatalf("capture back: %v", err)
		}
	}
	expectStep(state, domain.StepFaceCapture)
	fmt.Println("[PASS] Document captured, entering face capture")

	faceEngine := capture.NewScriptedEngine(
		capture.ScriptedFrame{Image: jpegFrame("selfie-1")},
		capture.ScriptedFrame{Image: jpegFrame("selfie-2")},
		capture.ScriptedFrame{Image: jpegFrame("selfie-3")},
		capture.ScriptedFrame{Image: jpegFrame("selfie-4")},
	)
	runEngine(faceEngine, func(img capture.Image) {
		if state, err = orch.CaptureSelfie(ctx, id, img); err != nil {
			log.Fatalf("capture selfie: %v", err)
		}
		faceEngine.ResumeDetection()
	})
	expectStep(state, domain.StepReview)
	if len(state.Selfies) != domain.SelfieTarget {
		log.Fatalf("expected %d selfies, got %d", domain.SelfieTarget, len(state.Selfies))
	}
	fmt.Printf("[PASS] %d selfies captured, review reached\n", len(state.Selfies))

	state, err = orch.Submit(ctx, id)
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	expectStep(state, domain.StepResult)
	if state.Result == nil || state.Result.Outcome != domain.OutcomeSuccess {
		log.Fatalf("expected success result, got %+v", state.Result)
	}
	fmt.Printf("[PASS] Submission succeeded: %q (face score %.2f, threshold %.2f)\n",
		state.Result.Message, *state.Result.FaceScore, state.Result.FaceThreshold)

	if _, err := orch.Restart(ctx, id); err != nil {
		log.Fatalf("restart: %v", err)
	}
	fmt.Println("[PASS] Session restarted to welcome")
}

func runEngine(engine *capture.ScriptedEngine, onPhoto func(capture.Image)) {
	err := engine.Start(context.Background(), capture.Callbacks{
		OnPhotoTaken: func(img capture.Image, _ capture.Metadata) { onPhoto(img) },
		OnError:      func(err error) { log.Fatalf("capture error: %v", err) },
	})
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
}

func expectStep(state *domain.SessionState, want domain.Step) {
	if state.CurrentStep != want {
		log.Fatalf("expected step %s, got %s", want, state.CurrentStep)
	}
}

func jpegFrame(tag string) capture.Image {
	return capture.Image{
		Data:     []byte("\xff\xd8\xff\xe0 simulated jpeg: " + tag),
		MimeType: "image/jpeg",
	}
}

func stubVerify(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/kyc/verify" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if len(r.MultipartForm.File["selfieImages"]) < 4 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "not enough selfies",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Verification completed",
		"data": map[string]interface{}{
			"results": map[string]interface{}{
				"faceComparison": map[string]interface{}{"score": 0.81},
				"livenessCheck":  map[string]interface{}{"status": "live", "confidence": 0.93},
			},
		},
	})
}
