package i18n

// arabicMessages returns all Arabic translations.
func arabicMessages() map[string]string {
	return map[string]string{
		// Application
		"app.name":    "نور",
		"app.version": "نور %s",

		// Answer pipeline
		"answer.offline":    "تعذر الوصول إلى خدمة الإجابة حاليًا. يرجى التحقق من الاتصال والمحاولة مرة أخرى.",
		"answer.disclaimer": "والله أعلم. قد تكون هذه الإجابة غير كاملة؛ يرجى مراجعة أهل العلم في المسائل المهمة.",
		"answer.no_answer":  "لم أجد إجابة موثقة لهذا السؤال. يرجى سؤال أهل العلم.",

		// Chat surface
		"chat.cancelled": "تم إلغاء الطلب.",
		"chat.thinking":  "جارٍ البحث في المصادر...",
	}
}
