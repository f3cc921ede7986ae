package walks

// Verify compara la identidad provista contra la reserva registrada.
// Igualdad exacta de strings en ambos campos: sin trim, sin case-folding
// (comportamiento heredado del backend original). El resultado nunca dice
// cuál campo falló.
func Verify(r Reservation, name, phone string) bool {
	return r.ReserverName == name && r.ReserverPhone == phone
}
