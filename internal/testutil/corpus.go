package testutil

// FluChunk is the passage a flu-symptom question must retrieve.
const FluChunk = "Common flu symptoms include fever, cough, and fatigue."

// MedicalChunks returns a small corpus of medical passages in row order.
func MedicalChunks() []string {
	return []string{
		"Hypertension is persistently elevated blood pressure and often has no symptoms.",
		"Type 2 diabetes is managed with diet, exercise, and medications such as metformin.",
		"Migraine headaches can cause throbbing pain, nausea, and sensitivity to light.",
		FluChunk,
		"Asthma inhalers deliver bronchodilators that relax the airway muscles.",
		"Antibiotics treat bacterial infections but are ineffective against viruses.",
		"Iron deficiency anemia may cause tiredness, pale skin, and shortness of breath.",
		"A healthy adult resting heart rate is usually between 60 and 100 beats per minute.",
		"Seasonal allergies often cause sneezing, itchy eyes, and a runny nose.",
		"Ibuprofen is a nonsteroidal anti-inflammatory drug used for pain and swelling.",
		"Dehydration can lead to dizziness, dark urine, and dry mouth.",
		"Chest pain radiating to the left arm may indicate a heart attack and needs emergency care.",
		"Vaccination against influenza is recommended every year for most people.",
		"Sprained ankles are treated with rest, ice, compression, and elevation.",
		"Strep throat is diagnosed with a rapid antigen test or a throat culture.",
		"Regular handwashing reduces the spread of many infectious diseases.",
	}
}
